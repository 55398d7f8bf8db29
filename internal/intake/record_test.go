package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalakashico/portal-backend/pkg/enums"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

func validSubmission() Submission {
	return Submission{
		ReadingType: "alma",
		Name:        "  Ana ",
		Email:       " A@X.com ",
		Birthdate:   "1990-01-01",
		Question:    "¿Qué me enseña este vínculo?",
	}
}

func TestNormalizeTrimsAndKeepsFields(t *testing.T) {
	rec, err := Normalize(validSubmission())
	require.NoError(t, err)

	assert.Equal(t, enums.ReadingTypeAlma, rec.ReadingType)
	assert.Equal(t, "Ana", rec.Name)
	assert.Equal(t, "a@x.com", rec.Email)
	assert.Equal(t, "1990-01-01", rec.Birthdate)
	assert.Equal(t, "¿Qué me enseña este vínculo?", rec.Question)
	assert.Empty(t, rec.Goal)
}

func TestNormalizeRejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]func(*Submission){
		"name":      func(s *Submission) { s.Name = "" },
		"email":     func(s *Submission) { s.Email = "   " },
		"birthdate": func(s *Submission) { s.Birthdate = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			sub := validSubmission()
			mutate(&sub)

			_, err := Normalize(sub)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, MissingFieldsMessage, typed.Message())
			details, ok := typed.Details().(map[string]string)
			require.True(t, ok)
			assert.Equal(t, "is required", details[field])
		})
	}
}

func TestNormalizeFallsBackToDefaultReadingType(t *testing.T) {
	for _, raw := range []string{"", "tarot", "ALMAS"} {
		sub := validSubmission()
		sub.ReadingType = raw
		rec, err := Normalize(sub)
		require.NoError(t, err)
		assert.Equal(t, enums.DefaultReadingType, rec.ReadingType, "input %q", raw)
	}
}

func TestNormalizeClipsFreeText(t *testing.T) {
	sub := validSubmission()
	sub.Personality = strings.Repeat("ñ", maxFreeTextLen+50)

	rec, err := Normalize(sub)
	require.NoError(t, err)
	assert.Equal(t, maxFreeTextLen, len([]rune(rec.Personality)))
}

func TestValidateRejectsMalformedEmail(t *testing.T) {
	err := Validate(Record{Name: "Ana", Email: "not-an-email", Birthdate: "1990-01-01"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
