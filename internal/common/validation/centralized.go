package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"audio-policy/internal/audio"
	"audio-policy/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is the cause of every error reported by this package
var ErrValidation = stderrors.New("validation failed")

var halVersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerAudioValidators(v)

	// Report fields by their yaml or json name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"yaml", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &CentralizedValidator{
		validator: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// FluentValidator accumulates errors from chained checks
type FluentValidator struct {
	centralizedValidator *CentralizedValidator
	errors               []ValidationError
}

// NewFluentValidator creates a fluent validator
func NewFluentValidator() *FluentValidator {
	return &FluentValidator{
		centralizedValidator: globalValidator,
		errors:               make([]ValidationError, 0),
	}
}

// RequireString validates that a string is not empty (trimmed)
func (fv *FluentValidator) RequireString(value, name string) *FluentValidator {
	if strings.TrimSpace(value) == "" {
		fv.addError(name, "required", value, fmt.Sprintf("%s is required", name))
	}
	return fv
}

// RequireOneOf validates that a value is one of the allowed values
func (fv *FluentValidator) RequireOneOf(value string, allowed []string, name string) *FluentValidator {
	tag := fmt.Sprintf("required,oneof=%s", strings.Join(allowed, " "))
	if err := fv.centralizedValidator.ValidateVar(value, tag); err != nil {
		fv.addError(name, "oneof", value, fmt.Sprintf("%s must be one of: %s", name, strings.Join(allowed, ", ")))
	}
	return fv
}

// RequireRange validates that a value is within a range
func (fv *FluentValidator) RequireRange(value, min, max int, name string) *FluentValidator {
	tag := fmt.Sprintf("min=%d,max=%d", min, max)
	if err := fv.centralizedValidator.ValidateVar(value, tag); err != nil {
		fv.addError(name, "range", fmt.Sprintf("%d", value), fmt.Sprintf("%s must be between %d and %d", name, min, max))
	}
	return fv
}

// HasErrors returns true if there are validation errors
func (fv *FluentValidator) HasErrors() bool {
	return len(fv.errors) > 0
}

// Message joins the messages of every recorded error
func (fv *FluentValidator) Message() string {
	return joinMessages(fv.errors)
}

func (fv *FluentValidator) addError(field, tag, value, message string) {
	fv.errors = append(fv.errors, ValidationError{
		Field:   field,
		Tag:     tag,
		Value:   value,
		Message: message,
	})
}

// formatValidationErrors converts go-playground/validator errors to internal errors
func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	return errors.InvalidArgumentError(joinMessages(cv.extractValidationErrors(err)), ErrValidation)
}

func joinMessages(errs []ValidationError) string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Message
	}
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// extractValidationErrors extracts structured validation errors
func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var fieldErrors validator.ValidationErrors
	if stderrors.As(err, &fieldErrors) {
		for _, fieldError := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Namespace(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

// formatFieldError formats go-playground/validator field errors into readable messages
func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	field := err.Namespace()
	if field == "" {
		field = err.Field()
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "numeric":
		return fmt.Sprintf("field '%s' must be a number", field)
	case "hal_version":
		return fmt.Sprintf("field '%s' must be a <major>.<minor> version", field)
	case "audio_flags":
		return fmt.Sprintf("field '%s' must be a list of AUDIO_OUTPUT_FLAG_* or AUDIO_INPUT_FLAG_* names", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

// registerAudioValidators registers the tags used by topology descriptions
func registerAudioValidators(v *validator.Validate) {
	v.RegisterValidation("hal_version", func(fl validator.FieldLevel) bool {
		return halVersionPattern.MatchString(fl.Field().String())
	})

	// Empty flags are valid; a mix port's role decides which set they are read from
	v.RegisterValidation("audio_flags", func(fl validator.FieldLevel) bool {
		text := fl.Field().String()
		if _, err := audio.ParseOutputFlags(text); err == nil {
			return true
		}
		_, err := audio.ParseInputFlags(text)
		return err == nil
	})
}

var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}
