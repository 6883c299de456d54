package utils

import (
	"context"
	"fmt"
	"net/url"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	})
}

// ValidateStruct runs the validate tags of s; failures wrap models.ErrValidation.
func ValidateStruct(ctx context.Context, s interface{}) error {
	if err := validate.StructCtx(ctx, s); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}
