package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// validate checks request DTOs. Field names in errors follow the json tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// bind decodes the JSON body into dst and validates it, writing the error
// response itself. It reports whether the handler may continue.
func (r responder) bind(w http.ResponseWriter, req *http.Request, dst any) bool {
	ctx := req.Context()
	decoder := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		r.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}

	if err := validate.StructCtx(ctx, dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			r.writeInvalid(ctx, w, vErrs)
			return false
		}
		r.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

// windowQuery is the start/end pair of listing endpoints.
type windowQuery struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

// bindWindow parses RFC 3339 start and end query parameters.
func (r responder) bindWindow(w http.ResponseWriter, req *http.Request) (windowQuery, bool) {
	var query windowQuery
	var err error
	values := req.URL.Query()
	if query.Start, err = parseQueryTime(values, "start"); err != nil {
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadQuery)
		return windowQuery{}, false
	}
	if query.End, err = parseQueryTime(values, "end"); err != nil {
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadQuery)
		return windowQuery{}, false
	}
	if err := validate.StructCtx(req.Context(), query); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			r.writeInvalid(req.Context(), w, vErrs)
			return windowQuery{}, false
		}
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadQuery)
		return windowQuery{}, false
	}
	return query, true
}

func parseQueryTime(values url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// queryInt parses an optional non-negative integer parameter.
func queryInt(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errBadQuery
	}
	return value, nil
}
