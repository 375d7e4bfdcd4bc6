package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ErrRequirementNotFound indicates an unknown requirement definition.
var ErrRequirementNotFound = errors.New("requirement not found")

// FileUploader abstracts uploading binary data and returning an opaque
// file reference.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// RequirementService orchestrates the per-student requirement
// validation workflow and the catalog behind it.
type RequirementService interface {
	ListDefinitions(ctx context.Context, phase *workflow.RequirementPhase) ([]dto.RequirementDefinitionResponse, error)
	CreateDefinition(ctx context.Context, actor workflow.Actor, payload dto.RequirementDefinitionRequest) (dto.RequirementDefinitionResponse, error)
	UpdateDefinition(ctx context.Context, actor workflow.Actor, id uint, payload dto.RequirementDefinitionRequest) (dto.RequirementDefinitionResponse, error)

	Checklist(ctx context.Context, studentID uint) (dto.ChecklistResponse, error)
	Submit(ctx context.Context, actor workflow.Actor, requirementID uint, file *multipart.FileHeader) (dto.RequirementSubmissionResponse, error)
	Validate(ctx context.Context, actor workflow.Actor, studentID, requirementID uint) (dto.RequirementSubmissionResponse, error)
	Return(ctx context.Context, actor workflow.Actor, studentID, requirementID uint, payload dto.RequirementReturnRequest) (dto.RequirementSubmissionResponse, error)
	ValidateAll(ctx context.Context, actor workflow.Actor, studentID uint) (dto.BatchValidateResponse, error)
}

type requirementService struct {
	requirements repository.RequirementRepository
	validator    *validator.Validate
	uploader     FileUploader
	audit        TransitionRecorder
	events       EventPublisher
	progress     ProgressInvalidator
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	now          func() time.Time
}

// NewRequirementService constructs a RequirementService instance.
func NewRequirementService(repo repository.RequirementRepository, validate *validator.Validate, uploader FileUploader, audit TransitionRecorder, events EventPublisher, progress ProgressInvalidator, logger zerolog.Logger) RequirementService {
	return &requirementService{
		requirements: repo,
		validator:    validate,
		uploader:     uploader,
		audit:        audit,
		events:       events,
		progress:     progress,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "requirement_service").Logger(),
		now:          time.Now,
	}
}

func (s *requirementService) ListDefinitions(ctx context.Context, phase *workflow.RequirementPhase) ([]dto.RequirementDefinitionResponse, error) {
	definitions, err := s.requirements.ListDefinitions(ctx, phase)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.RequirementDefinitionResponse, 0, len(definitions))
	for _, definition := range definitions {
		responses = append(responses, dto.NewRequirementDefinitionResponse(definition))
	}

	return responses, nil
}

func (s *requirementService) CreateDefinition(ctx context.Context, actor workflow.Actor, payload dto.RequirementDefinitionRequest) (dto.RequirementDefinitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RequirementDefinitionResponse{}, err
	}

	if actor.Role != workflow.RoleHead && actor.Role != workflow.RoleSuperadmin {
		return dto.RequirementDefinitionResponse{}, workflow.ErrUnauthorized
	}

	required := true
	if payload.Required != nil {
		required = *payload.Required
	}

	accessibleTo := payload.AccessibleTo
	if len(accessibleTo) == 0 {
		accessibleTo = []string{string(workflow.RoleStudent), string(workflow.RoleCoordinator)}
	}

	definition := models.RequirementDefinition{
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		Phase:        workflow.RequirementPhase(payload.Phase),
		Required:     required,
		OrderIndex:   payload.OrderIndex,
		AccessibleTo: accessibleTo,
	}

	if err := s.requirements.CreateDefinition(ctx, &definition); err != nil {
		return dto.RequirementDefinitionResponse{}, err
	}

	return dto.NewRequirementDefinitionResponse(definition), nil
}

func (s *requirementService) UpdateDefinition(ctx context.Context, actor workflow.Actor, id uint, payload dto.RequirementDefinitionRequest) (dto.RequirementDefinitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RequirementDefinitionResponse{}, err
	}

	if actor.Role != workflow.RoleHead && actor.Role != workflow.RoleSuperadmin {
		return dto.RequirementDefinitionResponse{}, workflow.ErrUnauthorized
	}

	definition, err := s.requirements.GetDefinition(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RequirementDefinitionResponse{}, ErrRequirementNotFound
		}
		return dto.RequirementDefinitionResponse{}, err
	}

	definition.Title = strings.TrimSpace(payload.Title)
	definition.Description = strings.TrimSpace(payload.Description)
	definition.Phase = workflow.RequirementPhase(payload.Phase)
	definition.OrderIndex = payload.OrderIndex
	if payload.Required != nil {
		definition.Required = *payload.Required
	}
	if len(payload.AccessibleTo) > 0 {
		definition.AccessibleTo = payload.AccessibleTo
	}

	if err := s.requirements.UpdateDefinition(ctx, &definition); err != nil {
		return dto.RequirementDefinitionResponse{}, err
	}

	return dto.NewRequirementDefinitionResponse(definition), nil
}

func (s *requirementService) Checklist(ctx context.Context, studentID uint) (dto.ChecklistResponse, error) {
	definitions, err := s.requirements.ListDefinitions(ctx, nil)
	if err != nil {
		return dto.ChecklistResponse{}, err
	}

	submissions, err := s.requirements.ListSubmissions(ctx, studentID)
	if err != nil {
		return dto.ChecklistResponse{}, err
	}

	byRequirement := make(map[uint]models.RequirementSubmission, len(submissions))
	for _, submission := range submissions {
		byRequirement[submission.RequirementID] = submission
	}

	response := dto.ChecklistResponse{StudentID: studentID, PreValidated: true, PostValidated: true}
	for _, definition := range definitions {
		item := dto.ChecklistItem{Requirement: dto.NewRequirementDefinitionResponse(definition)}

		if submission, ok := byRequirement[definition.ID]; ok {
			item.Submission = dto.NewRequirementSubmissionResponse(submission)
		} else {
			// Absent rows imply pending.
			item.Submission = dto.RequirementSubmissionResponse{
				StudentID:     studentID,
				RequirementID: definition.ID,
				Status:        workflow.RequirementPending,
			}
		}

		if definition.Required {
			response.RequiredCount++
			if item.Submission.Validated {
				response.ValidatedCount++
			} else {
				switch definition.Phase {
				case workflow.PhasePre:
					response.PreValidated = false
				case workflow.PhasePost:
					response.PostValidated = false
				}
			}
		}

		response.Items = append(response.Items, item)
	}

	return response, nil
}

func (s *requirementService) Submit(ctx context.Context, actor workflow.Actor, requirementID uint, file *multipart.FileHeader) (dto.RequirementSubmissionResponse, error) {
	if file == nil || file.Size == 0 {
		return dto.RequirementSubmissionResponse{}, workflow.ErrMissingFile
	}

	definition, err := s.requirements.GetDefinition(ctx, requirementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RequirementSubmissionResponse{}, ErrRequirementNotFound
		}
		return dto.RequirementSubmissionResponse{}, err
	}

	submission, err := s.requirements.GetSubmission(ctx, actor.ID, requirementID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RequirementSubmissionResponse{}, err
		}
		// Lazily created on first submission.
		submission = models.RequirementSubmission{
			StudentID:     actor.ID,
			RequirementID: requirementID,
			Status:        workflow.RequirementPending,
		}
	}

	if err := workflow.CanSubmitRequirement(actor, submission.Status); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	if err := validateRequirementFileType(file); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.RequirementSubmissionResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	fileReference, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.RequirementSubmissionResponse{}, fmt.Errorf("failed to upload file: %w", err)
	}

	submittedAt := s.now()
	submission.Status = workflow.RequirementSubmitted
	submission.FileReference = fileReference
	submission.Returned = false
	submission.Remarks = ""
	submission.SubmittedAt = &submittedAt

	if err := s.requirements.SaveSubmission(ctx, &submission); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	s.afterTransition(ctx, actor, submission, "requirement.submitted", definition.Title)

	return dto.NewRequirementSubmissionResponse(submission), nil
}

func (s *requirementService) Validate(ctx context.Context, actor workflow.Actor, studentID, requirementID uint) (dto.RequirementSubmissionResponse, error) {
	tracer := otel.Tracer("github.com/oeams/oeams-api/internal/service/requirement")
	ctx, span := tracer.Start(ctx, "requirement.validate")
	span.SetAttributes(
		attribute.Int64("requirement.student_id", int64(studentID)),
		attribute.Int64("requirement.id", int64(requirementID)),
	)
	defer span.End()

	submission, err := s.requirements.GetSubmission(ctx, studentID, requirementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No row means nothing was ever submitted.
			span.SetStatus(codes.Error, "not_submitted")
			return dto.RequirementSubmissionResponse{}, workflow.ErrNotSubmitted
		}
		return dto.RequirementSubmissionResponse{}, err
	}

	if err := workflow.CanValidateRequirement(actor, submission.Status, submission.Validated); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_refused")
		return dto.RequirementSubmissionResponse{}, err
	}

	if submission.FileReference == "" {
		return dto.RequirementSubmissionResponse{}, workflow.ErrMissingFile
	}

	validatedAt := s.now()
	submission.Status = workflow.RequirementValidated
	submission.Validated = true
	submission.ValidatedAt = &validatedAt

	if err := s.requirements.SaveSubmission(ctx, &submission); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	s.afterTransition(ctx, actor, submission, "requirement.validated", "")

	return dto.NewRequirementSubmissionResponse(submission), nil
}

func (s *requirementService) Return(ctx context.Context, actor workflow.Actor, studentID, requirementID uint, payload dto.RequirementReturnRequest) (dto.RequirementSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	submission, err := s.requirements.GetSubmission(ctx, studentID, requirementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RequirementSubmissionResponse{}, workflow.ErrNotSubmitted
		}
		return dto.RequirementSubmissionResponse{}, err
	}

	remarks := strings.TrimSpace(s.sanitizer.Sanitize(payload.Remarks))
	if err := workflow.CanReturnRequirement(actor, submission.Status, remarks); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	submission.Status = workflow.RequirementReturned
	submission.Returned = true
	submission.Validated = false
	submission.Remarks = remarks

	if err := s.requirements.SaveSubmission(ctx, &submission); err != nil {
		return dto.RequirementSubmissionResponse{}, err
	}

	s.afterTransition(ctx, actor, submission, "requirement.returned", "")

	return dto.NewRequirementSubmissionResponse(submission), nil
}

// ValidateAll validates every submitted, not-yet-validated requirement
// for the student. Individual failures never abort the batch.
func (s *requirementService) ValidateAll(ctx context.Context, actor workflow.Actor, studentID uint) (dto.BatchValidateResponse, error) {
	submissions, err := s.requirements.ListSubmissions(ctx, studentID)
	if err != nil {
		return dto.BatchValidateResponse{}, err
	}

	response := dto.BatchValidateResponse{StudentID: studentID}
	for _, submission := range submissions {
		if submission.Status != workflow.RequirementSubmitted || submission.Validated {
			continue
		}

		outcome := dto.BatchItemOutcome{RequirementID: submission.RequirementID}
		if _, err := s.Validate(ctx, actor, studentID, submission.RequirementID); err != nil {
			outcome.Error = err.Error()
			response.Failed++
		} else {
			outcome.Succeeded = true
			response.Succeeded++
		}
		response.Outcomes = append(response.Outcomes, outcome)
	}

	return response, nil
}

func (s *requirementService) afterTransition(ctx context.Context, actor workflow.Actor, submission models.RequirementSubmission, transition, title string) {
	if s.audit != nil {
		metadata := map[string]interface{}{
			"student_id":     submission.StudentID,
			"requirement_id": submission.RequirementID,
			"status":         string(submission.Status),
		}
		if title != "" {
			metadata["title"] = title
		}
		s.audit.Record(ctx, TransitionEntry{
			Actor:      actor,
			EntityType: "requirement",
			EntityID:   submission.RequirementID,
			Transition: transition,
			Metadata:   metadata,
		})
	}
	if s.events != nil {
		s.events.Publish("requirement", submission.RequirementID, transition, actor, submission.StudentID)
	}
	if s.progress != nil {
		s.progress.Invalidate(ctx, submission.StudentID)
	}

	s.logger.Info().
		Uint("student_id", submission.StudentID).
		Uint("requirement_id", submission.RequirementID).
		Str("transition", transition).
		Msg("requirement transition committed")
}

func validateRequirementFileType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "image/jpeg", "image/png", "application/zip", "application/x-zip-compressed"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
