package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
)

// Kind classifies an error for the realtime clients.
type Kind string

const (
	// No identity is bound to the connection.
	AuthenticationRequiredKind Kind = "AuthenticationRequired"
	// The auth token is not recognized.
	InvalidCredentialKind Kind = "InvalidCredential"
	// The identity is not a member of the target list.
	AccessDeniedKind Kind = "AccessDenied"
	// The referenced list or item does not exist.
	NotFoundKind Kind = "NotFound"
	// The inbound payload is malformed.
	ValidationFailedKind Kind = "ValidationFailed"
	// Anything else, usually a data layer failure.
	InternalKind Kind = "Internal"
)

// Standard for Error reponses to the client.
type ErrorResponse struct {
	Status  int         `json:"status"`
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error is required by the error interface.
func (e ErrorResponse) Error() string {
	return e.Message
}

// Get the StatusCode of the error.
func (e ErrorResponse) StatusCode() int {
	return e.Status
}

// Replicates the New method of default errors package.
func New(err string) error {
	return stderrors.New(err)
}

// As converts any error into an ErrorResponse, unknown errors become InternalServerError.
func As(err error) ErrorResponse {
	var resp ErrorResponse
	if stderrors.As(err, &resp) {
		return resp
	}
	return InternalServerError("")
}

// KindOf returns the Kind of err, InternalKind for errors outside of the taxonomy.
func KindOf(err error) Kind {
	return As(err).Kind
}

// InternalServerError creates a new error response representing an internal server error (HTTP 500)
func InternalServerError(msg string) ErrorResponse {
	if msg == "" {
		msg = "We encountered an error while processing your request."
	}
	return ErrorResponse{
		Status:  http.StatusInternalServerError,
		Kind:    InternalKind,
		Message: msg,
	}
}

// NotFound creates a new error response representing a resource-not-found error (HTTP 404)
func NotFound(msg string) ErrorResponse {
	if msg == "" {
		msg = "The requested resource was not found."
	}
	return ErrorResponse{
		Status:  http.StatusNotFound,
		Kind:    NotFoundKind,
		Message: msg,
	}
}

// AuthenticationRequired is returned when a connection without identity sends a protected message (HTTP 401)
func AuthenticationRequired(msg string) ErrorResponse {
	if msg == "" {
		msg = "Not authenticated"
	}
	return ErrorResponse{
		Status:  http.StatusUnauthorized,
		Kind:    AuthenticationRequiredKind,
		Message: msg,
	}
}

// InvalidCredential creates a new error response for an unknown auth token (HTTP 401)
func InvalidCredential(msg string) ErrorResponse {
	if msg == "" {
		msg = "Invalid auth token"
	}
	return ErrorResponse{
		Status:  http.StatusUnauthorized,
		Kind:    InvalidCredentialKind,
		Message: msg,
	}
}

// AccessDenied creates a new error response representing an authorization failure (HTTP 403)
func AccessDenied(msg string) ErrorResponse {
	if msg == "" {
		msg = "Access denied"
	}
	return ErrorResponse{
		Status:  http.StatusForbidden,
		Kind:    AccessDeniedKind,
		Message: msg,
	}
}

// ValidationFailed creates a new error response representing a malformed payload (HTTP 400)
func ValidationFailed(msg string) ErrorResponse {
	if msg == "" {
		msg = "Your request is in a bad format."
	}
	return ErrorResponse{
		Status:  http.StatusBadRequest,
		Kind:    ValidationFailedKind,
		Message: msg,
	}
}

// Standard for Validation-error responses to the client.
type validationError struct {
	Param   string `json:"param"`   // Parameter or Field
	Message string `json:"message"` // Issue in Field
}

// Captures multiple validation issues and sends it as a response in one go.
// Use-case of this would be bunch of validation issues caught in a form.
type ValidationErrorResponse struct {
	Response []validationError `json:"errors"`
}

// Scans through set of validation errors found by govalidator,
// Generates a slice of serializable validationErrorResponse.
func GenerateValidationErrorResponse(errs []error) ErrorResponse {
	// govalidator returns array of errors in -> Param:Message format
	// We split the error from the first ":"
	resp := []validationError{}
	messages := []string{}
	for _, err := range errs {
		e := strings.SplitN(err.Error(), ":", 2)
		verr := validationError{Message: strings.TrimSpace(e[0])}
		if len(e) == 2 {
			verr = validationError{Param: strings.TrimSpace(e[0]), Message: strings.TrimSpace(e[1])}
		}
		resp = append(resp, verr)
		messages = append(messages, verr.Message)
	}
	return ErrorResponse{
		Status:  http.StatusBadRequest,
		Kind:    ValidationFailedKind,
		Message: strings.Join(messages, "; "),
		Details: ValidationErrorResponse{Response: resp},
	}
}
