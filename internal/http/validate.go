package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/go-playground/validator/v10"
)

var fieldMessages = map[string]string{
	"title":       "Title is required",
	"description": "Description is required",
	"rating":      "Rating must be between 0 and 10",
	"releaseDate": "Valid release date is required",
	"duration":    "Duration must be at least 1 minute",
	"director":    "Director is required",
	"imdbRank":    "IMDb rank must be at least 1",
	"email":       "A valid email is required",
	"password":    "Password is required",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})

	return v
}

// fieldErrors maps validator output to the catalog's field messages
func fieldErrors(err error) []db.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]db.FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true

		msg, ok := fieldMessages[field]
		if !ok {
			msg = field + " is invalid"
		}
		out = append(out, db.FieldError{Field: field, Message: msg})
	}
	return out
}

// writeValidationError reports invalid fields with status 400
func writeValidationError(w http.ResponseWriter, fields []db.FieldError) {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Message
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Success: false,
		Message: strings.Join(msgs, ", "),
		Code:    "VALIDATION_FAILED",
		Errors:  fields,
	})
}
