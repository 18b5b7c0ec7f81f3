package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

var errInvalidJSON = errors.New("invalid JSON body")

// decode reads a JSON body into dst. It reports errInvalidJSON for a
// malformed or empty body, and otherwise the names of the fields that
// failed validation.
func decode(r *http.Request, dst any) ([]string, error) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return nil, errInvalidJSON
	}

	err := getValidator().Struct(dst)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return fields, nil
}
