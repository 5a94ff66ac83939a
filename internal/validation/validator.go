// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package validation provides struct validation using go-playground/validator v10.
// It provides a thread-safe singleton validator instance with custom validators
// for account and favorites input.
//
// Features:
//   - Singleton validator instance (thread-safe, caches struct info)
//   - Custom validators: password_strength, phone, activation_code
//   - Field names reported by their json tag
//   - Per-field messages for the account forms, generic templates otherwise
//
// Example usage:
//
//	var req validation.LoginRequest
//	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { ... }
//	req.Normalize()
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondForm(w, http.StatusBadRequest, FormResult{Message: verr.First()})
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,15}$`)

// ValidationError represents a single field validation error with structured information.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the json name of the field that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "100" for "max=100").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} {
	return e.value
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}

	return strings.Join(messages, "; ")
}

// First returns the first field message, which is what a form shows.
func (ve *RequestValidationError) First() string {
	if len(ve.errors) == 0 {
		return "Validation failed"
	}
	return ve.errors[0].message
}

// FieldErrors maps each failed field to its first message.
func (ve *RequestValidationError) FieldErrors() map[string]string {
	out := make(map[string]string, len(ve.errors))
	for _, err := range ve.errors {
		if _, ok := out[err.field]; !ok {
			out[err.field] = err.message
		}
	}
	return out
}

// GetValidator returns the singleton validator instance.
// The validator is initialized once with custom validators and options.
// This function is thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Registration only fails for an empty tag or nil func.
		_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
		_ = validate.RegisterValidation("phone", validatePhone)
		_ = validate.RegisterValidation("activation_code", validateActivationCode)
	})

	return validate
}

// validatePasswordStrength requires a lowercase letter, an uppercase letter
// and a digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// validatePhone accepts an empty value; phone is optional.
func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.TrimSpace(fl.Field().String())
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

func validateActivationCode(fl validator.FieldLevel) bool {
	return IsActivationCode(fl.Field().String())
}

// IsActivationCode reports whether code looks like a Supabase email link
// code: an RFC 4122 UUID, a PKCE token, or at least eight characters.
func IsActivationCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if id, err := uuid.Parse(code); err == nil && id.Variant() == uuid.RFC4122 && id.Version() >= 1 && id.Version() <= 5 {
		return true
	}
	if strings.HasPrefix(code, "pkce_") {
		return true
	}
	return len(code) >= 8
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{
				{
					field:   "unknown",
					tag:     "unknown",
					message: err.Error(),
				},
			},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// fieldMessages overrides the generic templates for form fields, keyed by
// "<json name>.<tag>". A %s, where present, receives the tag param.
var fieldMessages = map[string]string{
	"email.required":             "Email is required",
	"email.email":                "Please enter a valid email address",
	"email.max":                  "Email must not exceed %s characters",
	"password.required":          "Password is required",
	"password.min":               "Password must be at least %s characters",
	"password.max":               "Password must not exceed %s characters",
	"password.password_strength": "Password must contain at least one uppercase letter, one lowercase letter, and one number",
	"firstName.required":         "First name is required",
	"firstName.min":              "First name must be at least %s characters",
	"firstName.max":              "First name must not exceed %s characters",
	"lastName.required":          "Last name is required",
	"lastName.min":               "Last name must be at least %s characters",
	"lastName.max":               "Last name must not exceed %s characters",
	"confirmPassword.required":   "Please confirm your password",
	"confirmPassword.eqfield":    "Passwords don't match",
	"phone.phone":                "Please enter a valid phone number",
	"termsAccepted.eq":           "You must accept the terms and conditions to continue.",
	"code.required":              "Missing activation code. Please use the link from your email.",
	"code.activation_code":       "Invalid activation code format. Please use the correct link from your email.",
	"movie_id.required":          "Movie ID and title are required",
	"movie_id.gt":                "Movie ID and title are required",
	"movie_title.required":       "Movie ID and title are required",
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":   "%s must be one of: %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
	"gt":      "%s must be greater than %s",
	"lt":      "%s must be less than %s",
	"eqfield": "%s must match %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if msg, ok := fieldMessages[field+"."+tag]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, param)
		}
		return msg
	}

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}

	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
