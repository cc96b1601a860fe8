package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

var (
	ErrInvalidPricingType = errors.New("invalid pricing_type")
	ErrInvalidSegment     = errors.New("invalid segment")
	ErrInvalidWeight      = errors.New("invalid weight_kg")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

// AllBranches matches a rule to every branch.
const AllBranches = "ALL"

// PricingStore defines the DB methods the pricing service needs.
type PricingStore interface {
	ListActiveRulesByServiceType(ctx context.Context, serviceType string) ([]database.PricingRule, error)
}

// CalculateRequest is a price calculation query.
type CalculateRequest struct {
	ServiceType string
	BranchCode  string
	Segment     string
	WeightKg    string
	Quantity    int32
}

// CalculateResult explains which rule matched and the resulting price. When
// no rule matches, RuleFound is false and amounts are zero rather than an
// error so the front desk can still quote manually.
type CalculateResult struct {
	RuleFound bool            `json:"rule_found"`
	RuleNo    string          `json:"rule_no,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	Note      string          `json:"note,omitempty"`
}

// PricingService resolves pricing rules and calculates prices.
type PricingService struct {
	store PricingStore
}

// NewPricingService creates a new PricingService.
func NewPricingService(store PricingStore) *PricingService {
	return &PricingService{store: store}
}

// Calculate resolves the best rule and computes the price.
func (s *PricingService) Calculate(ctx context.Context, req CalculateRequest) (*CalculateResult, error) {
	if err := validateServiceType(req.ServiceType); err != nil {
		return nil, err
	}
	if err := validateSegment(req.Segment); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	weight := decimal.Zero
	if req.WeightKg != "" {
		w, err := decimal.NewFromString(req.WeightKg)
		if err != nil || w.IsNegative() {
			return nil, ErrInvalidWeight
		}
		weight = w
	}

	rules, err := s.store.ListActiveRulesByServiceType(ctx, req.ServiceType)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}

	rule, found := resolveRule(rules, req.BranchCode, req.Segment, weight)
	if !found {
		return &CalculateResult{Note: "No rule found"}, nil
	}

	subtotal := computeSubtotal(rule, weight, req.Quantity)

	// Discount percent rounds to the nearest whole currency unit.
	discount := subtotal.Mul(numericToDecimal(rule.DiscountPercent)).Div(decimal.NewFromInt(100)).Round(0)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &CalculateResult{
		RuleFound: true,
		RuleNo:    rule.RuleNo,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     total,
	}, nil
}

// resolveRule picks the highest-priority applicable rule. A rule matching
// the customer's exact segment always beats a REGULAR fallback, regardless
// of priority.
func resolveRule(rules []database.PricingRule, branchCode, segment string, weight decimal.Decimal) (database.PricingRule, bool) {
	var fallback database.PricingRule
	haveFallback := false
	for _, r := range rules {
		if r.BranchCode != AllBranches && r.BranchCode != branchCode {
			continue
		}
		if !weightInRange(r, weight) {
			continue
		}
		if r.Segment == segment {
			return r, true
		}
		if !haveFallback && r.Segment == enum.CustomerSegmentRegular {
			fallback = r
			haveFallback = true
		}
	}
	return fallback, haveFallback
}

func weightInRange(r database.PricingRule, weight decimal.Decimal) bool {
	if r.MinWeightKg.Valid && weight.LessThan(numericToDecimal(r.MinWeightKg)) {
		return false
	}
	if r.MaxWeightKg.Valid && weight.GreaterThan(numericToDecimal(r.MaxWeightKg)) {
		return false
	}
	return true
}

func computeSubtotal(rule database.PricingRule, weight decimal.Decimal, quantity int32) decimal.Decimal {
	qty := decimal.NewFromInt32(quantity)
	switch rule.PricingType {
	case enum.PricingTypePerItem:
		return numericToDecimal(rule.BasePrice).Mul(qty)
	case enum.PricingTypePerKg:
		return numericToDecimal(rule.PricePerKg).Mul(weight)
	case enum.PricingTypeHybrid:
		return numericToDecimal(rule.BasePrice).Mul(qty).
			Add(numericToDecimal(rule.PricePerKg).Mul(weight))
	}
	return decimal.Zero
}

func validateSegment(s string) error {
	switch s {
	case enum.CustomerSegmentRegular, enum.CustomerSegmentVIP, enum.CustomerSegmentCorporate:
		return nil
	}
	return ErrInvalidSegment
}

// ValidatePricingType checks a rule's pricing type on creation.
func ValidatePricingType(s string) error {
	switch s {
	case enum.PricingTypePerItem, enum.PricingTypePerKg, enum.PricingTypeHybrid:
		return nil
	}
	return ErrInvalidPricingType
}

// NewRuleNo generates a rule business id.
func NewRuleNo() string {
	return businessID("RULE")
}
