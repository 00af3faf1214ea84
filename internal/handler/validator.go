package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to echo. Field names in
// errors use the json tag so they match the request body.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// patch fields are checked on their value; null validates as empty
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		return f.Interface().(model.Optional[string]).ValidationValue()
	}, model.Optional[string]{})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = describe(fe)
		}
		return &repository.ValidationError{Fields: fields}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// normalizer is implemented by requests that clean up input before validation.
type normalizer interface {
	normalize()
}

// bindStrict decodes a JSON body rejecting unknown fields, then validates it.
func bindStrict(c echo.Context, dst interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return repository.NewValidationError("body", "is required")
		}
		return repository.NewValidationError("body", err.Error())
	}
	if dec.More() {
		return repository.NewValidationError("body", "must contain a single JSON object")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(dst)
}
