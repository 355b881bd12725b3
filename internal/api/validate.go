package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks a request message's struct tags and returns an
// InvalidArgument Connect error describing every failing field.
func Validate(msg any) error {
	err := validate.Struct(msg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		details = append(details, fmt.Sprintf("%s %s", fieldPath(fe), validationMessage(fe)))
	}
	sort.Strings(details)
	return connect.NewError(connect.CodeInvalidArgument,
		fmt.Errorf("validation failed: %s", strings.Join(details, "; ")))
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "numeric", "decimal":
		return "must be a decimal amount"
	}
	return "is invalid"
}
