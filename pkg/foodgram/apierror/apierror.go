package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
)

// Kind classifies an application error and decides its HTTP status
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

// AppError is an error surfaced to API clients
type AppError struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error kind
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON body written for every error
type Response struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewFieldError returns a validation error attached to a single request field
func NewFieldError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Fields:  map[string][]string{field: {message}},
	}
}

// NewConflict reports a uniqueness violation. It maps to 400 like other
// client input errors.
func NewConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewNotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Respond writes err as a JSON error response and aborts the request.
// Errors that are not AppErrors become 500s and are logged.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternal("Internal server error", err)
	}

	if appErr.Kind == KindInternal {
		logging.WithContext(c.Request.Context()).WithError(err).Error(appErr.Message)
		_ = c.Error(err)
		c.AbortWithStatusJSON(appErr.Status(), Response{Error: appErr.Message})
		return
	}

	c.AbortWithStatusJSON(appErr.Status(), Response{
		Error:  appErr.Message,
		Fields: appErr.Fields,
	})
}

// FromBinding converts a gin binding error into a validation error with
// field-level messages keyed by JSON field name
func FromBinding(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &AppError{Kind: KindValidation, Message: "Invalid request body", Err: err}
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := jsonFieldPath(fe)
		fields[name] = append(fields[name], describe(fe))
	}
	return &AppError{
		Kind:    KindValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

// jsonFieldPath turns "RecipeWriteRequest.Ingredients[0].Amount" into
// "ingredients[0].amount" using the validator's registered tag names
func jsonFieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s) or character(s).", fe.Param())
		}
		return fmt.Sprintf("Must be greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at most %s item(s) or character(s).", fe.Param())
		}
		return fmt.Sprintf("Must be less than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. It may contain only letters, digits and @/./+/-/_ characters."
	case "unique":
		return "Values must not repeat."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
