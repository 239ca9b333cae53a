package fixtures

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
)

// SeedDefaults publishes the default rule set and statutory tables. Versions that
// are already published are left untouched.
func SeedDefaults(ctx context.Context, repo payroll.ConfigurationRepository) error {
	rules := DefaultMultiplierRuleSet()
	if err := repo.PublishRuleSet(ctx, rules); err != nil {
		if !errors.Is(err, payroll.ErrConfigurationExists) {
			return err
		}
	} else {
		slog.Info("published multiplier rule set", "version", rules.Version, "effective_date", rules.EffectiveDate.Format("2006-01-02"))
	}

	tables := DefaultStatutoryTables()
	if err := repo.PublishStatutoryTables(ctx, tables); err != nil {
		if !errors.Is(err, payroll.ErrConfigurationExists) {
			return err
		}
	} else {
		slog.Info("published statutory tables", "version", tables.Version, "effective_date", tables.EffectiveDate.Format("2006-01-02"))
	}

	return nil
}
