package service

import (
	"fmt"
	"math"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"
)

// Projector computes investment scenarios, memoized on the input tuple.
type Projector struct {
	cache   port.Cache[domain.ProjectionResult]
	metrics *observability.Metrics
}

// NewProjector creates a Projector. cache may be nil.
func NewProjector(cache port.Cache[domain.ProjectionResult], metrics *observability.Metrics) *Projector {
	return &Projector{cache: cache, metrics: metrics}
}

// Project validates in and returns the low/high scenario.
func (p *Projector) Project(in domain.ProjectionInput) (domain.ProjectionResult, error) {
	if err := validateProjection(in); err != nil {
		return domain.ProjectionResult{}, err
	}

	key := fmt.Sprintf("%g|%g|%g|%g|%g|%g",
		in.PurchasePrice, in.HoldingPeriod,
		in.NetYieldLow, in.NetYieldHigh,
		in.AppreciationLow, in.AppreciationHigh,
	)
	if p.cache != nil {
		if res, ok := p.cache.Get(key); ok {
			p.metrics.IncrCacheHit("projection")
			return res, nil
		}
		p.metrics.IncrCacheMiss("projection")
	}

	res := ComputeProjection(in)
	if p.cache != nil {
		p.cache.Set(key, res)
	}
	return res, nil
}

// ComputeProjection evaluates both bounds of the scenario. Rental income
// accumulates without compounding; resale value compounds yearly.
func ComputeProjection(in domain.ProjectionInput) domain.ProjectionResult {
	return domain.ProjectionResult{
		Input: in,
		Low:   projectBound(in.PurchasePrice, in.HoldingPeriod, in.NetYieldLow, in.AppreciationLow),
		High:  projectBound(in.PurchasePrice, in.HoldingPeriod, in.NetYieldHigh, in.AppreciationHigh),
	}
}

func projectBound(price, years, yieldPct, appreciationPct float64) domain.ProjectionBound {
	rental := price * (yieldPct / 100) * years
	resale := price * math.Pow(1+appreciationPct/100, years)
	total := rental + (resale - price)
	return domain.ProjectionBound{
		RentalIncome:     rental,
		ResaleValue:      resale,
		TotalReturn:      total,
		AnnualizedReturn: ((total / price) / years) * 100,
	}
}

func validateProjection(in domain.ProjectionInput) error {
	for name, v := range map[string]float64{
		"purchasePrice":    in.PurchasePrice,
		"holdingPeriod":    in.HoldingPeriod,
		"netYieldLow":      in.NetYieldLow,
		"netYieldHigh":     in.NetYieldHigh,
		"appreciationLow":  in.AppreciationLow,
		"appreciationHigh": in.AppreciationHigh,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &domain.ErrValidation{Field: name, Message: "must be a finite number"}
		}
	}
	switch {
	case in.PurchasePrice <= 0:
		return &domain.ErrValidation{Field: "purchasePrice", Message: "must be greater than 0"}
	case in.HoldingPeriod <= 0:
		return &domain.ErrValidation{Field: "holdingPeriod", Message: "must be greater than 0"}
	case in.NetYieldLow > in.NetYieldHigh:
		return &domain.ErrValidation{Field: "netYieldLow", Message: "must not exceed netYieldHigh"}
	case in.AppreciationLow > in.AppreciationHigh:
		return &domain.ErrValidation{Field: "appreciationLow", Message: "must not exceed appreciationHigh"}
	case in.AppreciationLow <= -100:
		return &domain.ErrValidation{Field: "appreciationLow", Message: "must be greater than -100"}
	}
	return nil
}
