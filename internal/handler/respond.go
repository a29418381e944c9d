package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Error codes of the API taxonomy. Every failure response carries exactly
// one of these so clients can branch on code instead of parsing messages.
const (
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeCategoryExists     = "CATEGORY_EXISTS"
	CodeAlreadyShared      = "ALREADY_SHARED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeNoToken            = "NO_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidID          = "INVALID_ID"
	CodeServerError        = "SERVER_ERROR"
)

// errorBody is the error half of the uniform response envelope.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ok writes the success envelope.
func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// fail writes the error envelope.
func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"success": false, "error": errorBody{Code: code, Message: message}})
}

// failDetails writes the error envelope with per-field details.
func failDetails(c echo.Context, status int, code, message string, details map[string]string) error {
	return c.JSON(status, echo.Map{"success": false, "error": errorBody{Code: code, Message: message, Details: details}})
}

// serverError maps an unexpected failure to a 500. In production the
// internal error text is withheld; elsewhere it is attached as a detail
// to ease debugging.
func serverError(c echo.Context, production bool, err error) error {
	if production {
		return fail(c, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
	return failDetails(c, http.StatusInternalServerError, CodeServerError, "internal server error",
		map[string]string{"cause": err.Error()})
}

// validationError translates validator failures into a VALIDATION_ERROR
// response with one detail entry per offending field.
func validationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = "failed on rule '" + fe.Tag() + "'"
		}
		return failDetails(c, http.StatusBadRequest, CodeValidation, "validation failed", details)
	}
	return fail(c, http.StatusBadRequest, CodeValidation, "validation failed")
}

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct{ validate *validator.Validate }

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(i any) error { return v.validate.Struct(i) }
