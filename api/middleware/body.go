package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/portalakashico/portal-backend/api/validators"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

// bufferBody reads at most validators.MaxBodyBytes of the request body and
// rewinds it for the next handler.
func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "El cuerpo de la solicitud es demasiado grande.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
