package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/config"
	"github.com/oeams/oeams-api/internal/database"
	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/handler"
	"github.com/oeams/oeams-api/internal/middleware"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/router"
	"github.com/oeams/oeams-api/internal/service"
	"github.com/oeams/oeams-api/internal/workflow"
)

const (
	studentID     = uint(1)
	employerID    = uint(100)
	headID        = uint(200)
	coordinatorID = uint(300)
	supervisorID  = uint(400)
)

type integrationUploader struct{}

func (integrationUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

func setupOjtApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	postingRepo := repository.NewPostingRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	transitionLogRepo := repository.NewTransitionLogRepository(db)

	audit := service.NewTransitionLogService(transitionLogRepo, logger)
	events := service.NewEventService(nil, "", logger)
	progressService := service.NewProgressService(applicationRepo, requirementRepo, attendanceRepo, nil, 0, 486, validate, audit, logger)
	postingService := service.NewPostingService(postingRepo, validate, audit, events, logger)
	applicationService := service.NewApplicationService(applicationRepo, postingRepo, validate, audit, events, progressService, logger)
	requirementService := service.NewRequirementService(requirementRepo, validate, integrationUploader{}, audit, events, progressService, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, progressService, progressService, validate, audit, events, logger)

	seedService := service.NewSeedService(requirementRepo, logger)
	_, err = seedService.SeedRequirementDefinitions(context.Background())
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		PostingHandler:     handler.NewPostingHandler(postingService, validate, logger),
		ApplicationHandler: handler.NewApplicationHandler(applicationService, validate, logger),
		RequirementHandler: handler.NewRequirementHandler(requirementService, validate, logger),
		AttendanceHandler:  handler.NewAttendanceHandler(attendanceService, validate, logger),
		ProgressHandler:    handler.NewProgressHandler(progressService, validate, logger),
		AuditHandler:       handler.NewAuditHandler(audit, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.Atoi(c.Get("X-Actor-ID")); err == nil {
				c.Locals("user_id", uint(id))
			}
			c.Locals("user_role", c.Get("X-Actor-Role"))
			return c.Next()
		},
	})

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, actorID uint, role workflow.Role, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-ID", strconv.Itoa(int(actorID)))
	req.Header.Set("X-Actor-Role", string(role))

	res, err := app.Test(req, 5000)
	require.NoError(t, err)
	return res
}

func submitRequirement(t *testing.T, app *fiber.App, requirementID uint) *http.Response {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	file, err := writer.CreateFormFile("file", fmt.Sprintf("requirement-%d.pdf", requirementID))
	require.NoError(t, err)
	_, err = file.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/ojt/requirements/%d/submit", requirementID), buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Actor-ID", strconv.Itoa(int(studentID)))
	req.Header.Set("X-Actor-Role", string(workflow.RoleStudent))

	res, err := app.Test(req, 5000)
	require.NoError(t, err)
	return res
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func TestOjtEndToEndFlow(t *testing.T) {
	app, db := setupOjtApp(t)

	// Employer drafts and files a posting for review.
	res := doJSON(t, app, http.MethodPost, "/api/v1/ojt/postings", employerID, workflow.RoleEmployer, map[string]interface{}{
		"title":        "Backend Intern",
		"description":  "Assist the platform team with API development",
		"posting_type": "internship",
		"skills":       []string{"go", "sql"},
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var posting envelope[dto.PostingResponse]
	decode(t, res, &posting)
	require.True(t, posting.Success)
	require.Equal(t, workflow.PostingPending, posting.Data.Status)
	postingPath := "/api/v1/ojt/postings/" + strconv.Itoa(int(posting.Data.ID))

	// Head approves, employer opens.
	res = doJSON(t, app, http.MethodPost, postingPath+"/transition", headID, workflow.RoleHead, map[string]string{"status": "approved"})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res = doJSON(t, app, http.MethodPost, postingPath+"/transition", employerID, workflow.RoleEmployer, map[string]string{"status": "open"})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	// A student approving their own posting transition is refused.
	res = doJSON(t, app, http.MethodPost, postingPath+"/transition", studentID, workflow.RoleStudent, map[string]string{"status": "closed"})
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	// Student applies.
	res = doJSON(t, app, http.MethodPost, "/api/v1/ojt/applications", studentID, workflow.RoleStudent, map[string]interface{}{
		"internship_id": posting.Data.ID,
	})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var application envelope[dto.ApplicationResponse]
	decode(t, res, &application)
	require.Equal(t, workflow.ApplicationPending, application.Data.Status)
	applicationPath := "/api/v1/ojt/applications/" + strconv.Itoa(int(application.Data.ID))

	// Employer accepts with the OJT starting today.
	startDate := time.Now()
	res = doJSON(t, app, http.MethodPost, applicationPath+"/accept", employerID, workflow.RoleEmployer, map[string]interface{}{
		"ojt_start_date": startDate.Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var accepted envelope[dto.ApplicationResponse]
	decode(t, res, &accepted)
	require.Equal(t, workflow.ApplicationAccepted, accepted.Data.Status)

	// Time-in is refused while pre-OJT requirements remain open.
	res = doJSON(t, app, http.MethodPost, "/api/v1/ojt/attendance/time-in", studentID, workflow.RoleStudent, nil)
	require.Equal(t, fiber.StatusConflict, res.StatusCode)

	// Student submits every pre-phase requirement; coordinator batch
	// validates them.
	for id := uint(1); id <= 15; id++ {
		res = submitRequirement(t, app, id)
		require.Equal(t, fiber.StatusOK, res.StatusCode)
		res.Body.Close()
	}

	res = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/ojt/requirements/students/%d/validate-all", studentID), coordinatorID, workflow.RoleCoordinator, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var batch envelope[dto.BatchValidateResponse]
	decode(t, res, &batch)
	require.Equal(t, 15, batch.Data.Succeeded)
	require.Zero(t, batch.Data.Failed)

	// The student's checklist now shows the pre gate cleared.
	res = doJSON(t, app, http.MethodGet, "/api/v1/ojt/requirements/checklist", studentID, workflow.RoleStudent, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var checklist envelope[dto.ChecklistResponse]
	decode(t, res, &checklist)
	require.True(t, checklist.Data.PreValidated)
	require.False(t, checklist.Data.PostValidated)
	require.Equal(t, 15, checklist.Data.ValidatedCount)
	require.Equal(t, 19, checklist.Data.RequiredCount)

	// Daily attendance: time-in, a duplicate attempt, time-out, then
	// supervisor approval.
	res = doJSON(t, app, http.MethodPost, "/api/v1/ojt/attendance/time-in", studentID, workflow.RoleStudent, map[string]string{"tasks": "Endpoint implementation"})
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var record envelope[dto.AttendanceResponse]
	decode(t, res, &record)
	require.NotNil(t, record.Data.TimeIn)

	res = doJSON(t, app, http.MethodPost, "/api/v1/ojt/attendance/time-in", studentID, workflow.RoleStudent, nil)
	require.Equal(t, fiber.StatusConflict, res.StatusCode)

	res = doJSON(t, app, http.MethodPost, "/api/v1/ojt/attendance/time-out", studentID, workflow.RoleStudent, map[string]string{"accomplishments": "Shipped the endpoint"})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	attendancePath := "/api/v1/ojt/attendance/" + strconv.Itoa(int(record.Data.ID))
	res = doJSON(t, app, http.MethodPost, attendancePath+"/validate", supervisorID, workflow.RoleSupervisor, map[string]string{"decision": "approved"})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var validated envelope[dto.AttendanceResponse]
	decode(t, res, &validated)
	require.Equal(t, workflow.AttendanceApproved, validated.Data.ValidationStatus)

	// Post-phase requirements close out the same way.
	for id := uint(16); id <= 19; id++ {
		res = submitRequirement(t, app, id)
		require.Equal(t, fiber.StatusOK, res.StatusCode)
		res.Body.Close()
	}

	res = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/ojt/requirements/students/%d/validate-all", studentID), coordinatorID, workflow.RoleCoordinator, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	decode(t, res, &batch)
	require.Equal(t, 4, batch.Data.Succeeded)

	// Backfill the rest of the hour ledger with approved days.
	for day := 1; day <= 54; day++ {
		require.NoError(t, db.Create(&models.AttendanceRecord{
			StudentID:        studentID,
			Date:             workflow.DateOnly(startDate.AddDate(0, 0, -day)),
			ValidationStatus: workflow.AttendanceApproved,
			TotalHours:       9,
		}).Error)
	}

	res = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/ojt/progress/students/%d", studentID), coordinatorID, workflow.RoleCoordinator, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var progress envelope[dto.ProgressResponse]
	decode(t, res, &progress)
	require.Equal(t, workflow.OjtCompleted, progress.Data.OjtStatus)
	require.GreaterOrEqual(t, progress.Data.AccomplishedHours, 486.0)
	require.Zero(t, progress.Data.RemainingHours)
	require.Equal(t, 100.0, progress.Data.ProgressPercentage)
	require.True(t, progress.Data.CanSubmitGrade)

	// Coordinator records the one-shot grade; a retry is refused.
	gradePath := fmt.Sprintf("/api/v1/ojt/progress/applications/%d/grade", application.Data.ID)
	res = doJSON(t, app, http.MethodPost, gradePath, coordinatorID, workflow.RoleCoordinator, map[string]float64{"grade": 95})
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var graded envelope[dto.ApplicationResponse]
	decode(t, res, &graded)
	require.NotNil(t, graded.Data.Grade)
	require.Equal(t, 95.0, *graded.Data.Grade)

	res = doJSON(t, app, http.MethodPost, gradePath, coordinatorID, workflow.RoleCoordinator, map[string]float64{"grade": 80})
	require.Equal(t, fiber.StatusConflict, res.StatusCode)

	// The audit trail captured the whole pipeline; students may not
	// read it.
	res = doJSON(t, app, http.MethodGet, "/api/v1/ojt/audit?entity_type=application", headID, workflow.RoleHead, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var trail envelope[struct {
		Entries []models.TransitionLog `json:"entries"`
		Total   int64                  `json:"total"`
	}]
	decode(t, res, &trail)
	require.NotEmpty(t, trail.Data.Entries)
	require.GreaterOrEqual(t, trail.Data.Total, int64(3))

	res = doJSON(t, app, http.MethodGet, "/api/v1/ojt/audit", studentID, workflow.RoleStudent, nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)
}
