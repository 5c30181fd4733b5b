package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"justice_flow_go/services"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts validator/v10 to echo's Validator interface
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds the validator registered on the echo instance
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate checks the struct tags and turns the first failure into a validation error
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return services.Validation("field %q failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return services.Validation("field %q failed %s", fe.Field(), fe.Tag())
	}
	return services.Validation("invalid request: %v", err)
}

// bindStrict decodes a JSON body rejecting unknown fields, then validates it
func bindStrict(c echo.Context, dst interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Validation("request body is required")
		}
		return services.Validation("invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return services.Validation("request body must hold a single JSON object")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
