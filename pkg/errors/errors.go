package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeProvider   Code = "PROVIDER_ERROR"
	CodeGeneration Code = "GENERATION_ERROR"
	CodeDelivery   Code = "DELIVERY_ERROR"
	CodeRateLimit  Code = "RATE_LIMIT_EXCEEDED"
	CodeConflict   Code = "IDEMPOTENCY_CONFLICT"
	CodeInternal   Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
	// ClientCaused marks errors the customer can fix by changing the request.
	ClientCaused bool
}

// Unknown ids and unpaid orders are reported as 400, the customer has to act on them.
var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "Faltan datos básicos (nombre, fecha, correo).",
		DetailsAllowed: true,
		ClientCaused:   true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "No se encontró la orden de pago.",
		ClientCaused:  true,
	},
	CodeProvider: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "No se pudo procesar el pago.",
	},
	CodeGeneration: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "No se pudo generar la lectura.",
	},
	CodeDelivery: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "No se pudo enviar el correo.",
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "Demasiadas solicitudes, intenta de nuevo en un momento.",
		ClientCaused:  true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "La solicitud ya se envió con otros datos.",
		ClientCaused:  true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "Error interno del servidor.",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
