// Package validation binds JSON request bodies and converts decoding and
// validator failures into *errs.HTTPError values with field-level details.
//
// Validation rules live in `binding` struct tags (go-playground/validator, as
// wired by Gin). Field names in error output use the JSON tag name.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-accounts-backend/internal/errs"
)

var registerOnce sync.Once

// registerTagNames makes validator report JSON field names ("phone_number")
// instead of Go field names ("PhoneNumber").
func registerTagNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// BindJSON decodes the request body into dst and validates it. Decoding and
// validation failures are returned as 400 *errs.HTTPError; other errors (e.g.
// *http.MaxBytesError) are returned unchanged for errs.From to classify.
func BindJSON(c *gin.Context, dst any) error {
	registerTagNames()
	if err := c.ShouldBindJSON(dst); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate converts a binding error into an *errs.HTTPError when it is a
// client mistake, or returns it unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var (
		synErr  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
		verrs   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, io.EOF):
		return errs.NewBadRequest("request body is empty").WithCause(err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errs.NewBadRequest("malformed JSON body").WithCause(err)
	case errors.As(err, &synErr):
		return errs.NewBadRequest(fmt.Sprintf("malformed JSON body at offset %d", synErr.Offset)).WithCause(err)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return errs.NewBadRequest("validation failed", errs.FieldError{
			Field: field,
			Error: "must be " + describeType(typeErr.Type),
		}).WithCause(err)
	case errors.As(err, &verrs):
		fields := make([]errs.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, errs.FieldError{Field: fieldPath(fe), Error: message(fe)})
		}
		return errs.NewBadRequest("validation failed", fields...).WithCause(err)
	}
	return err
}

// fieldPath strips the top-level struct name from the validator namespace:
// "AccountRequest.name" → "name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date formatted as %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}

// describeType names a Go type the way a JSON client thinks about it.
func describeType(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	}
	return "a valid " + t.String()
}
