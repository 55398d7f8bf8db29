// Package generation turns a request record into the narrative text of a reading.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/internal/readings"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/openai"
)

const (
	DefaultModel       = "gpt-4.1-mini"
	DefaultTemperature = 0.9
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 90 * time.Second

	unspecifiedMasculine = "no especificado"
	unspecifiedFeminine  = "no especificada"
)

// Options are the fixed sampling parameters of every generation call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

type ServiceParams struct {
	Completer openai.Completer
	Options   Options
}

type Service struct {
	completer openai.Completer
	opts      Options
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Completer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "completion client required")
	}
	opts := params.Options
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{completer: params.Completer, opts: opts}, nil
}

// Generate builds the prompt for rec's profile and returns the generated text.
// An empty text is a valid result; a failed call is a GENERATION_ERROR.
func (s *Service) Generate(ctx context.Context, rec intake.Record) (string, error) {
	profile := readings.Resolve(rec.ReadingType)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	text, err := s.completer.Complete(callCtx, openai.CompletionRequest{
		Model:       s.opts.Model,
		System:      profile.Instructions(),
		User:        BuildUserPrompt(rec, profile),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGeneration, err, "No se pudo generar la lectura.")
	}
	return strings.TrimSpace(text), nil
}

// BuildUserPrompt interpolates every record field into the fixed user template.
func BuildUserPrompt(rec intake.Record, profile readings.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genera una lectura para %s.\n\n", rec.Name)
	b.WriteString("Contexto que la persona escribió en el formulario (úsalo como base de TODO):\n")
	b.WriteString("Datos del consultante:\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", rec.Name)
	fmt.Fprintf(&b, "- Fecha de nacimiento: %s\n", rec.Birthdate)
	fmt.Fprintf(&b, "- Correo: %s\n", rec.Email)
	fmt.Fprintf(&b, "- Tipo de lectura: %s\n", profile.Title)
	fmt.Fprintf(&b, "- Enfoque: %s\n", profile.Focus)
	fmt.Fprintf(&b, "- Momento actual: %s\n", orDefault(rec.CurrentState, unspecifiedMasculine))
	fmt.Fprintf(&b, "- Personalidad: %s\n", orDefault(rec.Personality, unspecifiedFeminine))
	fmt.Fprintf(&b, "- Objetivo: %s\n", orDefault(rec.Goal, unspecifiedMasculine))
	fmt.Fprintf(&b, "- Pregunta central: %s\n", orDefault(rec.Question, unspecifiedFeminine))
	b.WriteString("\nInstrucciones:\n")
	b.WriteString("- Extensión aproximada: 700–1000 palabras.\n")
	b.WriteString("- Habla en segunda persona (\"tú\").\n")
	b.WriteString("- No sigas una estructura rígida.\n")
	b.WriteString("- Da entre 2 y 4 recomendaciones prácticas al final, integradas de forma natural en el texto.")
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
