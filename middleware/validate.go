package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pixelmuse/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func formatValidationError(err error) []string {
	var errs []string
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs = append(errs, fmt.Sprintf("%s is required", field))
			case "oneof":
				errs = append(errs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
			case "min":
				errs = append(errs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
			case "max":
				errs = append(errs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
			default:
				errs = append(errs, fmt.Sprintf("%s is invalid (%s)", field, e.Tag()))
			}
		}
	}
	if len(errs) == 0 {
		errs = append(errs, err.Error())
	}
	return errs
}

// ValidateJSON decodes a JSON payload into dst and validates it against its
// `validate` struct tags, writing a structured 400 with field-level detail
// on failure. A non-nil return means the response has been written.
func ValidateJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "application/json" && ct != "application/json; charset=utf-8" {
		utils.WriteError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return http.ErrNotSupported
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return err
	}
	if err := validate.Struct(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Validation failed", formatValidationError(err))
		return err
	}
	return nil
}
