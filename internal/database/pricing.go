package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const pricingRuleColumns = `id, rule_no, service_type, branch_code, segment, pricing_type,
	base_price, price_per_kg, min_weight_kg, max_weight_kg, discount_percent,
	priority, active, created_at`

func scanPricingRule(row interface{ Scan(dest ...any) error }) (PricingRule, error) {
	var r PricingRule
	err := row.Scan(
		&r.ID, &r.RuleNo, &r.ServiceType, &r.BranchCode, &r.Segment, &r.PricingType,
		&r.BasePrice, &r.PricePerKg, &r.MinWeightKg, &r.MaxWeightKg, &r.DiscountPercent,
		&r.Priority, &r.Active, &r.CreatedAt,
	)
	return r, err
}

type CreatePricingRuleParams struct {
	RuleNo          string
	ServiceType     string
	BranchCode      string
	Segment         string
	PricingType     string
	BasePrice       pgtype.Numeric
	PricePerKg      pgtype.Numeric
	MinWeightKg     pgtype.Numeric
	MaxWeightKg     pgtype.Numeric
	DiscountPercent pgtype.Numeric
	Priority        int32
}

const createPricingRule = `
INSERT INTO pricing_rules (
	rule_no, service_type, branch_code, segment, pricing_type,
	base_price, price_per_kg, min_weight_kg, max_weight_kg, discount_percent, priority
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + pricingRuleColumns

func (q *Queries) CreatePricingRule(ctx context.Context, arg CreatePricingRuleParams) (PricingRule, error) {
	row := q.db.QueryRow(ctx, createPricingRule,
		arg.RuleNo, arg.ServiceType, arg.BranchCode, arg.Segment, arg.PricingType,
		arg.BasePrice, arg.PricePerKg, arg.MinWeightKg, arg.MaxWeightKg,
		arg.DiscountPercent, arg.Priority,
	)
	return scanPricingRule(row)
}

const getPricingRule = `SELECT ` + pricingRuleColumns + ` FROM pricing_rules WHERE id = $1`

func (q *Queries) GetPricingRule(ctx context.Context, id uuid.UUID) (PricingRule, error) {
	return scanPricingRule(q.db.QueryRow(ctx, getPricingRule, id))
}

// ListActiveRulesByServiceType returns active rules ordered by descending
// priority; the resolver filters branch, segment, and weight in memory.
const listActiveRulesByServiceType = `
SELECT ` + pricingRuleColumns + ` FROM pricing_rules
WHERE service_type = $1 AND active = true
ORDER BY priority DESC, created_at`

func (q *Queries) ListActiveRulesByServiceType(ctx context.Context, serviceType string) ([]PricingRule, error) {
	rows, err := q.db.Query(ctx, listActiveRulesByServiceType, serviceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []PricingRule
	for rows.Next() {
		r, err := scanPricingRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const listPricingRules = `
SELECT ` + pricingRuleColumns + ` FROM pricing_rules
ORDER BY service_type, priority DESC, created_at
LIMIT $1 OFFSET $2`

func (q *Queries) ListPricingRules(ctx context.Context, limit, offset int32) ([]PricingRule, error) {
	rows, err := q.db.Query(ctx, listPricingRules, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []PricingRule
	for rows.Next() {
		r, err := scanPricingRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const deactivatePricingRule = `
UPDATE pricing_rules SET active = false WHERE id = $1
RETURNING ` + pricingRuleColumns

func (q *Queries) DeactivatePricingRule(ctx context.Context, id uuid.UUID) (PricingRule, error) {
	return scanPricingRule(q.db.QueryRow(ctx, deactivatePricingRule, id))
}
