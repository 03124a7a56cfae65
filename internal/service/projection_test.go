package service_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/cache"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestComputeProjection_DefaultScenario(t *testing.T) {
	res := service.ComputeProjection(domain.DefaultProjectionInput)

	if !approx(res.Low.RentalIncome, 41700, 1e-6) {
		t.Errorf("low rental: expected 41700, got %f", res.Low.RentalIncome)
	}
	if !approx(res.High.RentalIncome, 62550, 1e-6) {
		t.Errorf("high rental: expected 62550, got %f", res.High.RentalIncome)
	}
	if !approx(res.Low.ResaleValue, 194947, 1) {
		t.Errorf("low resale: expected ~194947, got %f", res.Low.ResaleValue)
	}
	if !approx(res.High.ResaleValue, 223861, 15) {
		t.Errorf("high resale: expected ~223871, got %f", res.High.ResaleValue)
	}
}

func TestComputeProjection_Properties(t *testing.T) {
	inputs := []domain.ProjectionInput{
		domain.DefaultProjectionInput,
		{PurchasePrice: 250000, HoldingPeriod: 10, NetYieldLow: 4, NetYieldHigh: 8, AppreciationLow: 2, AppreciationHigh: 6},
		{PurchasePrice: 90000, HoldingPeriod: 1, NetYieldLow: 5, NetYieldHigh: 5, AppreciationLow: 0, AppreciationHigh: 0},
		{PurchasePrice: 1200000, HoldingPeriod: 3.5, NetYieldLow: 0, NetYieldHigh: 12, AppreciationLow: -3, AppreciationHigh: 15},
	}

	for _, in := range inputs {
		res := service.ComputeProjection(in)

		if res.Low.ResaleValue > res.High.ResaleValue {
			t.Errorf("%+v: resale low %f > high %f", in, res.Low.ResaleValue, res.High.ResaleValue)
		}
		if res.Low.RentalIncome > res.High.RentalIncome {
			t.Errorf("%+v: rental low %f > high %f", in, res.Low.RentalIncome, res.High.RentalIncome)
		}

		for _, b := range []domain.ProjectionBound{res.Low, res.High} {
			lhs := b.AnnualizedReturn * in.HoldingPeriod
			rhs := b.TotalReturn / in.PurchasePrice * 100
			if !approx(lhs, rhs, 1e-9) {
				t.Errorf("%+v: annualized*years %f != total/price*100 %f", in, lhs, rhs)
			}
			if !approx(b.TotalReturn, b.RentalIncome+b.ResaleValue-in.PurchasePrice, 1e-6) {
				t.Errorf("%+v: total return inconsistent: %+v", in, b)
			}
		}
	}
}

func TestProjector_Validation(t *testing.T) {
	p := service.NewProjector(nil, observability.NewMetrics())

	bad := []domain.ProjectionInput{
		{PurchasePrice: 0, HoldingPeriod: 5},
		{PurchasePrice: 100000, HoldingPeriod: 0},
		{PurchasePrice: 100000, HoldingPeriod: 5, NetYieldLow: 9, NetYieldHigh: 6},
		{PurchasePrice: 100000, HoldingPeriod: 5, AppreciationLow: 10, AppreciationHigh: 7},
		{PurchasePrice: math.NaN(), HoldingPeriod: 5},
	}
	for _, in := range bad {
		_, err := p.Project(in)
		var valErr *domain.ErrValidation
		if !errors.As(err, &valErr) {
			t.Errorf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestProjector_Memoizes(t *testing.T) {
	c := cache.New[domain.ProjectionResult](time.Minute)
	defer c.Close()
	metrics := observability.NewMetrics()
	p := service.NewProjector(c, metrics)

	first, err := p.Project(domain.DefaultProjectionInput)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Project(domain.DefaultProjectionInput)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected identical results")
	}
	if rate := metrics.GetAdminStats().ProjectionHitRate; rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", rate)
	}
}
