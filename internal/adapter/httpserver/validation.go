package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// maxJSONBody caps request bodies on JSON endpoints.
const maxJSONBody = 1 << 20

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator reports fields by their json names.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New(validator.WithRequiredStructEnabled())
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// The returned details are nil unless validation rejected specific fields.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) ([]ValidationError, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return nil, fmt.Errorf("%w: content type must be application/json", domain.ErrInvalidArgument)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: request body required", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	return validateStruct(dst)
}

func validateStruct(v interface{}) ([]ValidationError, error) {
	err := getValidator().Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	out := make([]ValidationError, 0, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    strings.ToUpper(fe.Tag()),
			Message: fieldMessage(fe),
		})
		fields = append(fields, fe.Field())
	}
	return out, fmt.Errorf("%w: invalid %s", domain.ErrInvalidArgument, strings.Join(fields, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
