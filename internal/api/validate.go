package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationMessages maps validator tags to client-facing messages.
var validationMessages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"gt":       "The field '%s' must be greater than %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"datetime": "The field '%s' must be a date in the form %s.",
}

func parseMessage(jsonTag string, e validator.FieldError) string {
	msg, ok := validationMessages[e.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", jsonTag, e.Tag())
	}
	if strings.Count(msg, "%s") == 2 { //nolint:mnd // field name + tag param
		return fmt.Sprintf(msg, jsonTag, e.Param())
	}
	return fmt.Sprintf(msg, jsonTag)
}

// validateStruct returns JSON field names mapped to friendly messages.
// s must be a pointer to a struct. The map is empty when s is valid.
func validateStruct(s any) map[string]string {
	problems := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if err := validate.Struct(s); !errors.As(err, &fieldErrs) {
		return problems
	}

	structType := reflect.TypeOf(s).Elem()
	for _, e := range fieldErrs {
		jsonTag := e.StructField()
		if field, ok := structType.FieldByName(e.StructField()); ok {
			if tag := field.Tag.Get("json"); tag != "" {
				jsonTag = strings.Split(tag, ",")[0]
			}
		}
		problems[jsonTag] = parseMessage(jsonTag, e)
	}
	return problems
}

// problemsText flattens validation problems into one stable line.
func problemsText(problems map[string]string) string {
	msgs := make([]string, 0, len(problems))
	for _, m := range problems {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, " ")
}

// bodyError is a malformed or invalid request body.
type bodyError struct {
	message string
	detail  string
}

func (e *bodyError) Error() string {
	if e.detail == "" {
		return e.message
	}
	return e.message + ": " + e.detail
}

// bindBody decodes a JSON body into dst and validates it.
func bindBody(r *http.Request, dst any) *bodyError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &bodyError{message: "invalid JSON body"}
	}
	if problems := validateStruct(dst); len(problems) > 0 {
		return &bodyError{message: "validation failed", detail: problemsText(problems)}
	}
	return nil
}

// decodeBody is bindBody that writes a 400 and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := bindBody(r, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Error{ErrMessage: err.message, DetailError: err.detail})
		return false
	}
	return true
}
