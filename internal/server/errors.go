package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kiwidesk/kiwi/internal/apperr"
	"github.com/kiwidesk/kiwi/internal/task"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports struct fields by their JSON or form name.
func jsonFieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// errorBody is the JSON shape of every client and server error.
type errorBody struct {
	Detail  string   `json:"detail"`
	Type    string   `json:"type"`
	Field   string   `json:"field,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// respondError maps err onto a status code and error body. Validation
// errors use invalidStatus. Store and unexpected errors are logged in full
// and answered with an opaque 500.
func (h *handler) respondError(c *gin.Context, op string, invalidStatus int, err error) {
	var (
		verr *apperr.ValidationError
		nerr *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		h.log.Error(op+": invalid input", "field", verr.Field, "err", err)
		c.JSON(invalidStatus, errorBody{Detail: err.Error(), Type: "ValidationError", Field: verr.Field, Allowed: verr.Allowed})
	case errors.As(err, &nerr):
		status := http.StatusNotFound
		if nerr.Resource == task.ResourceParent {
			status = http.StatusBadRequest
		}
		h.log.Error(op+": not found", "resource", nerr.Resource, "id", nerr.ID)
		c.JSON(status, errorBody{Detail: err.Error(), Type: "NotFoundError"})
	default:
		h.log.Error(op+": failed", "err", err)
		c.JSON(http.StatusInternalServerError, errorBody{Detail: "Internal server error", Type: "InternalServerError"})
	}
}

// bindJSON decodes the request body into dst, turning decode and tag
// validation failures into a ValidationError.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindingError("body", err)
	}
	return nil
}

// bindQuery binds query parameters into dst.
func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return bindingError("query", err)
	}
	return nil
}

func bindingError(fallback string, err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		fe := verrs[0]
		return apperr.Invalid(fe.Field(), "%s", describeRule(fe))
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = fallback
		}
		return apperr.Invalid(field, "must be of type %s", typeErr.Type)
	case errors.As(err, &synErr):
		return apperr.Invalid(fallback, "malformed JSON at offset %d", synErr.Offset)
	default:
		return apperr.Invalid(fallback, "%v", err)
	}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
