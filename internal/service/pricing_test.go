package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
)

func decEq(d decimal.Decimal, want string) bool {
	w, _ := decimal.NewFromString(want)
	return d.Equal(w)
}

type mockPricingStore struct {
	listActiveRulesFn func(ctx context.Context, serviceType string) ([]database.PricingRule, error)
}

func (m *mockPricingStore) ListActiveRulesByServiceType(ctx context.Context, serviceType string) ([]database.PricingRule, error) {
	return m.listActiveRulesFn(ctx, serviceType)
}

func perItemRule(ruleNo, branchCode, segment, basePrice, discount string, priority int32) database.PricingRule {
	return database.PricingRule{
		RuleNo:          ruleNo,
		ServiceType:     enum.ServiceTypeNormal,
		BranchCode:      branchCode,
		Segment:         segment,
		PricingType:     enum.PricingTypePerItem,
		BasePrice:       makeNumeric(basePrice),
		DiscountPercent: makeNumeric(discount),
		Priority:        priority,
		Active:          true,
	}
}

func pricingServiceWith(rules ...database.PricingRule) *PricingService {
	return NewPricingService(&mockPricingStore{
		listActiveRulesFn: func(ctx context.Context, serviceType string) ([]database.PricingRule, error) {
			return rules, nil
		},
	})
}

func calcReq(segment string, quantity int32) CalculateRequest {
	return CalculateRequest{
		ServiceType: enum.ServiceTypeNormal,
		BranchCode:  "HQ",
		Segment:     segment,
		Quantity:    quantity,
	}
}

func TestCalculate_InvalidInputs(t *testing.T) {
	svc := pricingServiceWith()

	if _, err := svc.Calculate(context.Background(), CalculateRequest{ServiceType: "RUSH", Segment: enum.CustomerSegmentRegular, Quantity: 1}); !errors.Is(err, ErrInvalidServiceType) {
		t.Errorf("expected ErrInvalidServiceType, got: %v", err)
	}
	if _, err := svc.Calculate(context.Background(), CalculateRequest{ServiceType: enum.ServiceTypeNormal, Segment: "GOLD", Quantity: 1}); !errors.Is(err, ErrInvalidSegment) {
		t.Errorf("expected ErrInvalidSegment, got: %v", err)
	}
	if _, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentRegular, 0)); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got: %v", err)
	}
	req := calcReq(enum.CustomerSegmentRegular, 1)
	req.WeightKg = "-2"
	if _, err := svc.Calculate(context.Background(), req); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("expected ErrInvalidWeight, got: %v", err)
	}
}

func TestCalculate_NoRuleIsNotAnError(t *testing.T) {
	svc := pricingServiceWith()

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentRegular, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RuleFound {
		t.Error("no rules configured: RuleFound should be false")
	}
	if !result.Total.IsZero() {
		t.Errorf("total: got %s, want 0", result.Total)
	}
}

func TestCalculate_PerItem(t *testing.T) {
	svc := pricingServiceWith(perItemRule("RULE-1", AllBranches, enum.CustomerSegmentRegular, "200.00", "0", 0))

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentRegular, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.RuleFound || result.RuleNo != "RULE-1" {
		t.Fatalf("rule: got %+v, want RULE-1", result)
	}
	if !decEq(result.Total, "600") {
		t.Errorf("total: got %s, want 600", result.Total)
	}
}

func TestCalculate_PerKg(t *testing.T) {
	rule := database.PricingRule{
		RuleNo:          "RULE-KG",
		ServiceType:     enum.ServiceTypeNormal,
		BranchCode:      AllBranches,
		Segment:         enum.CustomerSegmentRegular,
		PricingType:     enum.PricingTypePerKg,
		PricePerKg:      makeNumeric("150.00"),
		DiscountPercent: makeNumeric("0"),
		Active:          true,
	}
	svc := pricingServiceWith(rule)

	req := calcReq(enum.CustomerSegmentRegular, 1)
	req.WeightKg = "4.5"
	result, err := svc.Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decEq(result.Total, "675") {
		t.Errorf("total: got %s, want 675", result.Total)
	}
}

func TestCalculate_Hybrid(t *testing.T) {
	rule := database.PricingRule{
		RuleNo:          "RULE-HYB",
		ServiceType:     enum.ServiceTypeNormal,
		BranchCode:      AllBranches,
		Segment:         enum.CustomerSegmentRegular,
		PricingType:     enum.PricingTypeHybrid,
		BasePrice:       makeNumeric("100.00"),
		PricePerKg:      makeNumeric("50.00"),
		DiscountPercent: makeNumeric("0"),
		Active:          true,
	}
	svc := pricingServiceWith(rule)

	req := calcReq(enum.CustomerSegmentRegular, 2)
	req.WeightKg = "3"
	result, err := svc.Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2*100 + 3*50
	if !decEq(result.Total, "350") {
		t.Errorf("total: got %s, want 350", result.Total)
	}
}

func TestCalculate_DiscountRoundsToWholeUnit(t *testing.T) {
	svc := pricingServiceWith(perItemRule("RULE-VIP", AllBranches, enum.CustomerSegmentVIP, "333.00", "10.00", 10))

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentVIP, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10% of 333 is 33.3, rounded to 33.
	if !decEq(result.Discount, "33") {
		t.Errorf("discount: got %s, want 33", result.Discount)
	}
	if !decEq(result.Total, "300") {
		t.Errorf("total: got %s, want 300", result.Total)
	}
}

func TestResolveRule_SegmentMatchBeatsRegularFallback(t *testing.T) {
	// Rules arrive priority-ordered; the REGULAR rule has higher priority
	// but the VIP customer should still get the VIP rule.
	svc := pricingServiceWith(
		perItemRule("RULE-REG", AllBranches, enum.CustomerSegmentRegular, "200.00", "0", 100),
		perItemRule("RULE-VIP", AllBranches, enum.CustomerSegmentVIP, "200.00", "15.00", 1),
	)

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentVIP, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RuleNo != "RULE-VIP" {
		t.Errorf("rule: got %s, want RULE-VIP", result.RuleNo)
	}
}

func TestResolveRule_RegularFallbackForUnmatchedSegment(t *testing.T) {
	svc := pricingServiceWith(perItemRule("RULE-REG", AllBranches, enum.CustomerSegmentRegular, "200.00", "0", 0))

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentCorporate, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.RuleFound || result.RuleNo != "RULE-REG" {
		t.Errorf("expected REGULAR fallback, got %+v", result)
	}
}

func TestResolveRule_BranchScoping(t *testing.T) {
	svc := pricingServiceWith(
		perItemRule("RULE-WSTL", "WSTL", enum.CustomerSegmentRegular, "250.00", "0", 10),
		perItemRule("RULE-ALL", AllBranches, enum.CustomerSegmentRegular, "200.00", "0", 0),
	)

	result, err := svc.Calculate(context.Background(), calcReq(enum.CustomerSegmentRegular, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RuleNo != "RULE-ALL" {
		t.Errorf("rule for HQ: got %s, want RULE-ALL", result.RuleNo)
	}
}

func TestResolveRule_WeightBands(t *testing.T) {
	light := database.PricingRule{
		RuleNo: "RULE-LIGHT", ServiceType: enum.ServiceTypeNormal,
		BranchCode: AllBranches, Segment: enum.CustomerSegmentRegular,
		PricingType: enum.PricingTypePerKg, PricePerKg: makeNumeric("100.00"),
		MaxWeightKg: makeNumeric("5.00"), DiscountPercent: makeNumeric("0"), Active: true,
	}
	heavy := database.PricingRule{
		RuleNo: "RULE-HEAVY", ServiceType: enum.ServiceTypeNormal,
		BranchCode: AllBranches, Segment: enum.CustomerSegmentRegular,
		PricingType: enum.PricingTypePerKg, PricePerKg: makeNumeric("80.00"),
		MinWeightKg: makeNumeric("5.01"), DiscountPercent: makeNumeric("0"), Active: true,
	}
	svc := pricingServiceWith(light, heavy)

	req := calcReq(enum.CustomerSegmentRegular, 1)
	req.WeightKg = "8"
	result, err := svc.Calculate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RuleNo != "RULE-HEAVY" {
		t.Errorf("rule for 8kg: got %s, want RULE-HEAVY", result.RuleNo)
	}
	if !decEq(result.Total, "640") {
		t.Errorf("total: got %s, want 640", result.Total)
	}
}

func TestWeightInRange_UnboundedRule(t *testing.T) {
	var r database.PricingRule
	if !weightInRange(r, decimal.NewFromInt(100)) {
		t.Error("rule without weight bounds should match any weight")
	}
}
