package payroll

import (
	"fmt"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// MultiplierResolver looks up pay multipliers by exact key over a validated rule set.
type MultiplierResolver struct {
	version string
	rules   map[payroll.MultiplierKey]decimal.Decimal
}

// NewMultiplierResolver validates set and indexes it for lookups.
func NewMultiplierResolver(set payroll.MultiplierRuleSet) (*MultiplierResolver, error) {
	if err := ValidateRuleSet(set); err != nil {
		return nil, err
	}
	rules := make(map[payroll.MultiplierKey]decimal.Decimal, len(set.Rules))
	for _, rule := range set.Rules {
		rules[rule.Key()] = rule.Multiplier
	}
	return &MultiplierResolver{version: set.Version, rules: rules}, nil
}

// ValidateRuleSet checks that the set resolves every canonical key exactly once.
func ValidateRuleSet(set payroll.MultiplierRuleSet) error {
	canonical := make(map[payroll.MultiplierKey]bool)
	for _, key := range payroll.CanonicalMultiplierKeys() {
		canonical[key] = true
	}

	seen := make(map[payroll.MultiplierKey]bool, len(set.Rules))
	for _, rule := range set.Rules {
		key := rule.Key()
		if !canonical[key] {
			return fmt.Errorf("%w: %s is not a reachable key", payroll.ErrInvalidMultiplierRule, key)
		}
		if seen[key] {
			return fmt.Errorf("%w: %s", payroll.ErrDuplicateMultiplierRule, key)
		}
		if !rule.Multiplier.IsPositive() {
			return fmt.Errorf("%w: %s has multiplier %s", payroll.ErrInvalidMultiplierRule, key, rule.Multiplier.String())
		}
		seen[key] = true
	}

	for _, key := range payroll.CanonicalMultiplierKeys() {
		if !seen[key] {
			return fmt.Errorf("%w: rule set %s has no rule for %s", payroll.ErrUnresolvedMultiplier, set.Version, key)
		}
	}
	return nil
}

func (r *MultiplierResolver) Version() string {
	return r.version
}

// Resolve returns the multiplier of key. A miss is a configuration integrity failure.
func (r *MultiplierResolver) Resolve(key payroll.MultiplierKey) (decimal.Decimal, error) {
	m, ok := r.rules[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", payroll.ErrUnresolvedMultiplier, key)
	}
	return m, nil
}
