package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/format"
)

type projectionResponse struct {
	domain.ProjectionResult
	Formatted formattedProjection `json:"formatted"`
}

type formattedBound struct {
	RentalIncome     string `json:"rentalIncome"`
	ResaleValue      string `json:"resaleValue"`
	TotalReturn      string `json:"totalReturn"`
	AnnualizedReturn string `json:"annualizedReturn"`
}

type formattedProjection struct {
	Low  formattedBound `json:"low"`
	High formattedBound `json:"high"`
}

func formatBound(b domain.ProjectionBound) formattedBound {
	return formattedBound{
		RentalIncome:     format.CurrencyFloat(b.RentalIncome),
		ResaleValue:      format.CurrencyFloat(b.ResaleValue),
		TotalReturn:      format.CurrencyFloat(b.TotalReturn),
		AnnualizedReturn: format.Percent(b.AnnualizedReturn),
	}
}

func projectionHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /projection")
		defer span.End()

		if d.Projector == nil {
			writeError(w, http.StatusServiceUnavailable, "projection not configured")
			return
		}
		in := domain.DefaultProjectionInput
		if err := decodeJSON(w, r, &in); err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}

		start := time.Now()
		res, err := d.Projector.Project(in)
		if err != nil {
			handleServiceError(w, err, d.Logger)
			return
		}
		d.Metrics.RecordRequestDuration("projection", time.Since(start))

		writeJSON(w, http.StatusOK, projectionResponse{
			ProjectionResult: res,
			Formatted: formattedProjection{
				Low:  formatBound(res.Low),
				High: formatBound(res.High),
			},
		})
	}
}

func projectionDefaultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.DefaultProjectionInput)
	}
}
