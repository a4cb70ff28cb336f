package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate 请求体校验器，字段名取 json tag
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs the struct tags of req and reports the first failure
// as a {"<field>": ["reason"]} 400.
func validateRequest(req interface{}) error {
	return validationError(validate.Struct(req))
}

// requireField reports a nil or zero value as a missing field.
func requireField(name string, value interface{}) error {
	if err := validate.Var(value, "required"); err != nil {
		return fieldError(name, fieldMessage("required", "", reflect.Invalid, nil))
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	// tags_input[2] 归到 tags_input
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return fieldError(name, fieldMessage(fe.Tag(), fe.Param(), fe.Kind(), fe.Value()))
}

func fieldMessage(tag, param string, kind reflect.Kind, value interface{}) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(value))
	case "min":
		if kind != reflect.String {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", param)
		}
		if param == "1" {
			return "This field may not be blank."
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", param)
	case "max":
		if kind != reflect.String {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", param)
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", param)
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", param)
	}
	return "Invalid value."
}
