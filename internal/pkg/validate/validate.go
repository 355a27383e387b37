package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/notify-dapp/internal/domain"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// report request fields by their JSON names
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct validates a request body by its validate tags. Failures wrap
// domain.ErrValidation and list every offending field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

// Address reports whether s is a 0x-prefixed 20 byte hex address.
func Address(s string) bool {
	return v.Var(s, "required,eth_addr") == nil
}
