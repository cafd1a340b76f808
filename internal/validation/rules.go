// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/filecatalog/internal/errors"
)

var (
	// mimeTypeRegex matches type/subtype media type names.
	mimeTypeRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*/[a-z0-9][a-z0-9!#$&^_.+-]*$`)

	// extensionRegex matches bare file extensions without the leading dot.
	extensionRegex = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// MimeType validates media type format like "application/pdf".
var MimeType = validation.NewStringRuleWithError(
	func(s string) bool {
		return mimeTypeRegex.MatchString(strings.ToLower(s))
	},
	validation.NewError("validation_mime_type", "must be a valid media type"),
)

// Extension validates a bare file extension without the leading dot.
var Extension = validation.NewStringRuleWithError(
	func(s string) bool {
		return extensionRegex.MatchString(strings.ToLower(s))
	},
	validation.NewError("validation_extension", "must be a short alphanumeric extension"),
)

// UUID validates canonical UUID text representation.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
