// Package intake turns a customer's form submission into a validated request record.
package intake

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

const maxFreeTextLen = 2000

// MissingFieldsMessage is shown to customers when a required field is absent.
const MissingFieldsMessage = "Faltan datos básicos (nombre, fecha, correo)."

// Submission is the raw form payload as posted by the site.
type Submission struct {
	ReadingType  string `json:"tipoLectura"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Birthdate    string `json:"birthdate"`
	CurrentState string `json:"estadoActual"`
	Personality  string `json:"personalidad"`
	Goal         string `json:"objetivo"`
	Question     string `json:"pregunta"`
}

// Record is the customer's intent captured before payment. It is read-only once built.
type Record struct {
	ReadingType  enums.ReadingType `json:"tipoLectura"`
	Name         string            `json:"name" validate:"required,max=200"`
	Email        string            `json:"email" validate:"required,email,max=254"`
	Birthdate    string            `json:"birthdate" validate:"required,max=64"`
	CurrentState string            `json:"estadoActual,omitempty"`
	Personality  string            `json:"personalidad,omitempty"`
	Goal         string            `json:"objetivo,omitempty"`
	Question     string            `json:"pregunta,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Normalize trims the submission, resolves the reading type and validates the result.
func Normalize(sub Submission) (Record, error) {
	rec := Record{
		ReadingType:  enums.NormalizeReadingType(sub.ReadingType),
		Name:         strings.TrimSpace(sub.Name),
		Email:        strings.ToLower(strings.TrimSpace(sub.Email)),
		Birthdate:    strings.TrimSpace(sub.Birthdate),
		CurrentState: clip(sub.CurrentState),
		Personality:  clip(sub.Personality),
		Goal:         clip(sub.Goal),
		Question:     clip(sub.Question),
	}
	if err := Validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate enforces the record invariant: name, email and birthdate are present.
func Validate(rec Record) error {
	if err := validate.Struct(rec); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, MissingFieldsMessage).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, MissingFieldsMessage)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

func clip(value string) string {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) <= maxFreeTextLen {
		return trimmed
	}
	runes := []rune(trimmed)
	return strings.TrimSpace(string(runes[:maxFreeTextLen]))
}
