package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type configurationRepository struct {
	db *database.DB
}

// NewConfigurationRepository stores rule sets and statutory tables as immutable JSONB versions.
func NewConfigurationRepository(db *database.DB) payroll.ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (r *configurationRepository) GetEffectiveRuleSet(ctx context.Context, asOf time.Time) (payroll.MultiplierRuleSet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT version, effective_date, rules
		FROM multiplier_rule_sets
		WHERE effective_date <= $1
		ORDER BY effective_date DESC, published_at DESC
		LIMIT 1
	`

	var set payroll.MultiplierRuleSet
	var raw []byte
	if err := q.QueryRow(ctx, query, asOf).Scan(&set.Version, &set.EffectiveDate, &raw); err != nil {
		if err == pgx.ErrNoRows {
			return payroll.MultiplierRuleSet{}, fmt.Errorf("%w: no multiplier rule set effective on %s", payroll.ErrConfigurationNotFound, asOf.Format("2006-01-02"))
		}
		return payroll.MultiplierRuleSet{}, fmt.Errorf("failed to get multiplier rule set: %w", err)
	}
	if err := json.Unmarshal(raw, &set.Rules); err != nil {
		return payroll.MultiplierRuleSet{}, fmt.Errorf("failed to decode multiplier rules %s: %w", set.Version, err)
	}

	return set, nil
}

func (r *configurationRepository) GetEffectiveStatutoryTables(ctx context.Context, asOf time.Time) (payroll.StatutoryTables, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT version, effective_date, tables
		FROM statutory_table_sets
		WHERE effective_date <= $1
		ORDER BY effective_date DESC, published_at DESC
		LIMIT 1
	`

	var version string
	var effective time.Time
	var raw []byte
	if err := q.QueryRow(ctx, query, asOf).Scan(&version, &effective, &raw); err != nil {
		if err == pgx.ErrNoRows {
			return payroll.StatutoryTables{}, fmt.Errorf("%w: no statutory tables effective on %s", payroll.ErrConfigurationNotFound, asOf.Format("2006-01-02"))
		}
		return payroll.StatutoryTables{}, fmt.Errorf("failed to get statutory tables: %w", err)
	}

	var tables payroll.StatutoryTables
	if err := json.Unmarshal(raw, &tables); err != nil {
		return payroll.StatutoryTables{}, fmt.Errorf("failed to decode statutory tables %s: %w", version, err)
	}
	tables.Version = version
	tables.EffectiveDate = effective

	return tables, nil
}

func (r *configurationRepository) PublishRuleSet(ctx context.Context, set payroll.MultiplierRuleSet) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(set.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode multiplier rules: %w", err)
	}

	_, err = q.Exec(ctx, `INSERT INTO multiplier_rule_sets (version, effective_date, rules) VALUES ($1, $2, $3)`, set.Version, set.EffectiveDate, raw)
	if err != nil {
		if strings.Contains(err.Error(), "multiplier_rule_sets_pkey") {
			return fmt.Errorf("%w: multiplier rule set %s", payroll.ErrConfigurationExists, set.Version)
		}
		return fmt.Errorf("failed to publish multiplier rule set: %w", err)
	}
	return nil
}

func (r *configurationRepository) PublishStatutoryTables(ctx context.Context, tables payroll.StatutoryTables) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to encode statutory tables: %w", err)
	}

	_, err = q.Exec(ctx, `INSERT INTO statutory_table_sets (version, effective_date, tables) VALUES ($1, $2, $3)`, tables.Version, tables.EffectiveDate, raw)
	if err != nil {
		if strings.Contains(err.Error(), "statutory_table_sets_pkey") {
			return fmt.Errorf("%w: statutory tables %s", payroll.ErrConfigurationExists, tables.Version)
		}
		return fmt.Errorf("failed to publish statutory tables: %w", err)
	}
	return nil
}
