// Package fulfillment composes generation and delivery into the single
// operation run for every paid (or direct) reading.
package fulfillment

import (
	"context"
	"time"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/internal/readings"
	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/metrics"
)

// Result is returned to the caller after a reading has been produced.
type Result struct {
	ReadingType enums.ReadingType `json:"tipoLectura"`
	Title       string            `json:"titulo"`
	Reading     string            `json:"lectura"`
	EmailSent   bool              `json:"emailEnviado"`
}

type Generator interface {
	Generate(ctx context.Context, rec intake.Record) (string, error)
}

type Notifier interface {
	Send(ctx context.Context, rec intake.Record, title, subject, narrative string) bool
}

type ServiceParams struct {
	Generator Generator
	Notifier  Notifier
	Metrics   *metrics.FulfillmentMetrics
	Logger    *logger.Logger
}

type Service struct {
	generator Generator
	notifier  Notifier
	metrics   *metrics.FulfillmentMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Generator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "generator required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		generator: params.Generator,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Fulfill validates rec, generates the reading and, only if generation
// succeeded, emails it. A failed delivery still returns the reading.
func (s *Service) Fulfill(ctx context.Context, rec intake.Record) (Result, error) {
	start := time.Now()
	if err := intake.Validate(rec); err != nil {
		return Result{}, err
	}

	profile := readings.Resolve(rec.ReadingType)

	text, err := s.generator.Generate(s.logg.WithStage(ctx, "generation"), rec)
	if err != nil {
		s.metrics.IncGenerationFailure()
		s.metrics.ObserveFulfillment(string(profile.Type), metrics.OutcomeFailure, time.Since(start))
		return Result{}, err
	}

	delivered := s.notifier.Send(s.logg.WithStage(ctx, "delivery"), rec, profile.Title, profile.Subject, text)
	s.metrics.IncDelivery(delivered)
	s.metrics.ObserveFulfillment(string(profile.Type), metrics.OutcomeSuccess, time.Since(start))

	return Result{
		ReadingType: profile.Type,
		Title:       profile.Title,
		Reading:     text,
		EmailSent:   delivered,
	}, nil
}
