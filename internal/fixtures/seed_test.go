package fixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	payrollService "github.com/cc-visionary/payroll-os-sub004/internal/service/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/service/statutory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryConfigRepo struct {
	payroll.ConfigurationRepository
	rules  map[string]payroll.MultiplierRuleSet
	tables map[string]payroll.StatutoryTables
	err    error
}

func newMemoryConfigRepo() *memoryConfigRepo {
	return &memoryConfigRepo{
		rules:  make(map[string]payroll.MultiplierRuleSet),
		tables: make(map[string]payroll.StatutoryTables),
	}
}

func (r *memoryConfigRepo) PublishRuleSet(ctx context.Context, set payroll.MultiplierRuleSet) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.rules[set.Version]; ok {
		return payroll.ErrConfigurationExists
	}
	r.rules[set.Version] = set
	return nil
}

func (r *memoryConfigRepo) PublishStatutoryTables(ctx context.Context, tables payroll.StatutoryTables) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.tables[tables.Version]; ok {
		return payroll.ErrConfigurationExists
	}
	r.tables[tables.Version] = tables
	return nil
}

func TestDefaultsAreValid(t *testing.T) {
	rules := DefaultMultiplierRuleSet()
	require.NoError(t, payrollService.ValidateRuleSet(rules))
	assert.Len(t, rules.Rules, 24)

	require.NoError(t, statutory.ValidateTables(DefaultStatutoryTables()))
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	repo := newMemoryConfigRepo()
	ctx := context.Background()

	require.NoError(t, SeedDefaults(ctx, repo))
	require.NoError(t, SeedDefaults(ctx, repo))
	assert.Len(t, repo.rules, 1)
	assert.Len(t, repo.tables, 1)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), repo.rules[DefaultRuleSetVersion].EffectiveDate)
}

func TestSeedDefaults_PropagatesErrors(t *testing.T) {
	repo := newMemoryConfigRepo()
	repo.err = errors.New("connection refused")

	assert.Error(t, SeedDefaults(context.Background(), repo))
}
