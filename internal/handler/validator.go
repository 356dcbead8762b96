package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

// Global validator instance
var validate *Validator

// InitValidator initializes the global validator
func InitValidator() {
	v := validator.New()

	_ = v.RegisterValidation("element", validateElement)
	_ = v.RegisterValidation("rarity", validateRarity)
	_ = v.RegisterValidation("action_kind", validateActionKind)

	validate = &Validator{validate: v}
}

// GetValidator returns the global validator instance
func GetValidator() *Validator {
	if validate == nil {
		InitValidator()
	}
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a user-friendly map keyed by field
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["error"] = "Invalid request format"
		return errs
	}

	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "element":
			errs[field] = "Must be one of fire, water, earth, air"
		case "rarity":
			errs[field] = "Must be one of rare, epic, legendary"
		case "action_kind":
			errs[field] = "Must be one of basic_attack, defend, skill"
		case "required_if":
			errs[field] = "This field is required for skill actions"
		case "max":
			errs[field] = fmt.Sprintf("Must be at most %s", e.Param())
		case "min":
			errs[field] = fmt.Sprintf("Must be at least %s", e.Param())
		case "excludesall":
			errs[field] = "Contains invalid characters"
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

func validateElement(fl validator.FieldLevel) bool {
	return domain.Element(strings.ToLower(fl.Field().String())).Valid()
}

func validateRarity(fl validator.FieldLevel) bool {
	switch domain.Rarity(strings.ToLower(fl.Field().String())) {
	case domain.RarityRare, domain.RarityEpic, domain.RarityLegendary:
		return true
	}
	return false
}

func validateActionKind(fl validator.FieldLevel) bool {
	switch domain.ActionKind(fl.Field().String()) {
	case domain.ActionBasicAttack, domain.ActionDefend, domain.ActionSkill:
		return true
	}
	return false
}
