package controllers

import (
	"context"
	"net/http"

	"github.com/portalakashico/portal-backend/api/responses"
	"github.com/portalakashico/portal-backend/api/validators"
	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/internal/intake"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

// ReadingFulfiller produces a reading for a validated record.
type ReadingFulfiller interface {
	Fulfill(ctx context.Context, rec intake.Record) (fulfillment.Result, error)
}

// Lectura generates and emails a reading without payment.
func Lectura(svc ReadingFulfiller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		rec, err := decodeRecord(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Fulfill(r.Context(), rec)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, result)
	}
}

func decodeRecord(r *http.Request) (intake.Record, error) {
	var sub intake.Submission
	if err := validators.DecodeJSONBody(r, &sub); err != nil {
		return intake.Record{}, err
	}
	return intake.Normalize(sub)
}
