package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dakshkumar96/Reclaim/internal/models"
)

// challengeRequest is the body of the start, check-in and complete endpoints.
type challengeRequest struct {
	ChallengeID uint `json:"challenge_id" binding:"required,gt=0"`
}

// challengeFilter narrows the catalog listing.
type challengeFilter struct {
	Difficulty string `form:"difficulty" binding:"omitempty,difficulty"`
	Category   string `form:"category" binding:"omitempty,max=50"`
}

// chatRequest is the body of the coach endpoint.
type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(fieldName)
	return v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return models.IsDifficulty(fl.Field().String())
	})
}

// fieldName reports fields by their wire name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// bindingMessage turns a binding failure into a client-facing message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "gt":
			parts = append(parts, field+" must be greater than "+fe.Param())
		case "max":
			parts = append(parts, field+" is too long")
		case "difficulty":
			parts = append(parts, field+" must be one of easy, medium, hard")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
