package rest

import (
	"strconv"

	"farmDirect/domain"
	"farmDirect/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// bindRequest decodes the body into req and runs its validate tags.
func bindRequest(c echo.Context, validate *validator.Validate, req any) error {
	if err := c.Bind(req); err != nil {
		logger.Warn("invalid request body", err)
		return domain.Validation("invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		logger.Warn("request validation failed", err)
		return domain.WrapError(domain.ErrValidation, validationMessage(err), err)
	}

	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "gte", "gt":
		return fe.Field() + " must be at least " + fe.Param()
	}

	return fe.Field() + " is invalid"
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Validation("invalid " + name)
	}

	return uint(id), nil
}

func queryID(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, domain.Validation("invalid " + name)
	}

	v := uint(id)
	return &v, nil
}

// queryInt reads an optional integer query parameter, zero when absent.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validation("invalid " + name)
	}

	return v, nil
}
