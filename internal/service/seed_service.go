package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// SeedService loads the default requirement catalog on first boot so
// the checklist is data-driven rather than hard-coded per screen.
type SeedService interface {
	SeedRequirementDefinitions(ctx context.Context) (int, error)
}

type seedService struct {
	requirements repository.RequirementRepository
	logger       zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(requirements repository.RequirementRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		requirements: requirements,
		logger:       logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedRequirementDefinitions inserts the default catalog when the table
// is empty. Re-running against a populated catalog is a no-op.
func (s *seedService) SeedRequirementDefinitions(ctx context.Context) (int, error) {
	count, err := s.requirements.CountDefinitions(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	for _, definition := range defaultRequirementDefinitions() {
		definition := definition
		if err := s.requirements.CreateDefinition(ctx, &definition); err != nil {
			return inserted, err
		}
		inserted++
	}

	s.logger.Info().Int("inserted", inserted).Msg("requirement catalog seeded")
	return inserted, nil
}

func defaultRequirementDefinitions() []models.RequirementDefinition {
	studentAndCoordinator := []string{string(workflow.RoleStudent), string(workflow.RoleCoordinator)}

	pre := []struct {
		title       string
		description string
	}{
		{"Recommendation/Endorsement Letter", "Letter of recommendation from faculty"},
		{"Acceptance Form", "Signed acceptance form from employer"},
		{"Internship Training Agreement", "Agreement between school, student, and employer"},
		{"Student-Trainee's Personal History Statement", "Personal history and background information"},
		{"Resume/CV", "Updated resume with complete information"},
		{"Parent's Consent for Internship Training", "Signed consent form from parent/guardian"},
		{"Parent/Guardian's Valid ID", "Copy of parent/guardian's valid government ID"},
		{"Registration Form", "OJT registration form"},
		{"OJT Time Frame", "Agreed schedule and duration of OJT"},
		{"Location Map", "Map showing location of internship site"},
		{"Vaccination Card and PhilHealth ID", "Proof of vaccination and PhilHealth membership"},
		{"Certificate of Employment with attached job description", "Certificate from employer with job description"},
		{"Pre-OJT Counseling Slip from the OGC", "Counseling slip from Guidance Office"},
		{"Notarized Memorandum of Agreement (MOA)", "Notarized MOA between all parties"},
		{"Medical Certificate", "Recent medical certificate (within 6 months)"},
	}

	post := []struct {
		title       string
		description string
		accessible  []string
	}{
		{"Narrative Report", "Comprehensive report of OJT experiences and learnings", studentAndCoordinator},
		{"Performance Appraisal Report", "Evaluation report completed and submitted by your training supervisor", []string{string(workflow.RoleSupervisor), string(workflow.RoleCoordinator)}},
		{"Training Supervisor Feedback", "Feedback form completed by training supervisor", studentAndCoordinator},
		{"OJT Related-Learning Experience", "Documentation of practical skills and knowledge gained", studentAndCoordinator},
	}

	definitions := make([]models.RequirementDefinition, 0, len(pre)+len(post))
	for i, item := range pre {
		definitions = append(definitions, models.RequirementDefinition{
			Title:        item.title,
			Description:  item.description,
			Phase:        workflow.PhasePre,
			Required:     true,
			OrderIndex:   i + 1,
			AccessibleTo: studentAndCoordinator,
		})
	}
	for i, item := range post {
		definitions = append(definitions, models.RequirementDefinition{
			Title:        item.title,
			Description:  item.description,
			Phase:        workflow.PhasePost,
			Required:     true,
			OrderIndex:   len(pre) + i + 1,
			AccessibleTo: item.accessible,
		})
	}

	return definitions
}
