package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oeams/oeams-api/internal/workflow"
)

func TestSeedRequirementDefinitions(t *testing.T) {
	repo := newFakeRequirementRepo()
	svc := NewSeedService(repo, zerolog.Nop())

	inserted, err := svc.SeedRequirementDefinitions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 19, inserted)

	definitions, err := repo.ListDefinitions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, definitions, 19)

	var pre, post int
	for _, definition := range definitions {
		require.True(t, definition.Required)
		require.NotEmpty(t, definition.AccessibleTo)
		switch definition.Phase {
		case workflow.PhasePre:
			pre++
		case workflow.PhasePost:
			post++
		}
	}
	require.Equal(t, 15, pre)
	require.Equal(t, 4, post)

	require.Equal(t, "Recommendation/Endorsement Letter", definitions[0].Title)
	appraisal := definitions[16]
	require.Equal(t, "Performance Appraisal Report", appraisal.Title)
	require.Contains(t, appraisal.AccessibleTo, string(workflow.RoleSupervisor))
	require.NotContains(t, appraisal.AccessibleTo, string(workflow.RoleStudent))
}

func TestSeedRequirementDefinitionsIdempotent(t *testing.T) {
	repo := newFakeRequirementRepo()
	svc := NewSeedService(repo, zerolog.Nop())

	_, err := svc.SeedRequirementDefinitions(context.Background())
	require.NoError(t, err)

	inserted, err := svc.SeedRequirementDefinitions(context.Background())
	require.NoError(t, err)
	require.Zero(t, inserted)

	definitions, err := repo.ListDefinitions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, definitions, 19)
}
