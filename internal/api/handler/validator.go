package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Besides the built-in tags it understands damage_kind.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("damage_kind", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDamageKind(fl.Field().String())
		return err == nil
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "damage_kind":
		return fmt.Sprintf("%s must be one of: %s", field, damageKindList())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func damageKindList() string {
	names := make([]string, len(domain.DamageKinds))
	for i, k := range domain.DamageKinds {
		names[i] = string(k)
	}
	return strings.Join(names, " ")
}
