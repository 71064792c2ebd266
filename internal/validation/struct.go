package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator оборачивает go-playground validator для проверки входных структур.
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор.
func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Struct проверяет структуру по тегам validate и возвращает читаемую ошибку.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("поле %s обязательно", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("поле %s должно быть не меньше %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("поле %s должно быть не больше %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("поле %s должно быть email", fe.Field())
	case "oneof":
		return fmt.Sprintf("поле %s должно быть одним из: %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("поле %s должно быть UUID", fe.Field())
	default:
		return fmt.Sprintf("поле %s не прошло проверку %s", fe.Field(), fe.Tag())
	}
}

// Default - общий экземпляр для пакетов без собственной инъекции.
var Default = New()
