package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shortreel/backend/internal/logging"
)

const (
	maxBodyBytes = 1 << 20
	// bcrypt rejects passwords longer than this many bytes.
	maxPasswordBytes = 72
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// validator's max counts runes; bcrypt limits bytes.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

type errorResponse struct {
	Error string `json:"error"`
}

// ValidationError reports every invalid field of a request payload.
type ValidationError struct {
	Message string   `json:"error"`
	Fields  []string `json:"fields"`
}

func (e *ValidationError) Error() string {
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// validateRequest runs struct validation and flattens failures into a
// ValidationError. Field names follow the JSON tags, nested with dots.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs))
	missing := false
	for _, fe := range verrs {
		name := fe.Namespace()
		if _, rest, ok := strings.Cut(name, "."); ok {
			name = rest
		}
		fields = append(fields, name)
		if fe.Tag() == "required" {
			missing = true
		}
	}

	message := "invalid fields"
	if missing {
		message = "missing required fields"
	}
	return &ValidationError{Message: message, Fields: fields}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message})
}

func respondInvalid(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		respondJSON(ctx, w, http.StatusBadRequest, verr)
		return
	}
	respondError(ctx, w, http.StatusBadRequest, "invalid request body")
}
