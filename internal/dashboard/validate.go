package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/markb/shopdash/internal/apperr"
	"github.com/markb/shopdash/internal/log"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes the JSON body into dst and validates it. Any failure, a
// malformed body included, becomes a Validation error carrying msg.
func bind(w http.ResponseWriter, r *http.Request, dst any, msg string) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		log.Debug("request body rejected", "path", r.URL.Path, "error", err)
		return apperr.Validation(msg)
	}

	if err := validate.Struct(dst); err != nil {
		log.Debug("request validation failed", "path", r.URL.Path, "fields", fieldErrors(err))
		return apperr.Validation(msg)
	}
	return nil
}

// fieldErrors maps JSON field names to the failed validation tag.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			out[e.Field()] = e.Tag()
		}
	}
	return out
}
