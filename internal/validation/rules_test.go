package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/filecatalog/internal/errors"
)

func TestMimeType(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{name: "valid media type", value: "application/pdf"},
		{name: "valid with suffix", value: "application/vnd.ms-excel"},
		{name: "uppercase is normalized", value: "Text/Plain"},
		{name: "missing subtype", value: "application", shouldErr: true},
		{name: "empty", value: "", shouldErr: true},
		{name: "spaces", value: "text / plain", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MimeType.Validate(tt.value)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	assert.NoError(t, Extension.Validate("pdf"))
	assert.NoError(t, Extension.Validate("tar"))
	assert.Error(t, Extension.Validate(".pdf"))
	assert.Error(t, Extension.Validate(""))
	assert.Error(t, Extension.Validate("way-too-long-extension"))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate(""))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("value"))
	assert.Error(t, NoWhitespace.Validate(" value"))
	assert.Error(t, NoWhitespace.Validate("value "))
}

func TestUUID(t *testing.T) {
	assert.NoError(t, UUID.Validate("0192c3a4-1b2c-7d3e-8f90-123456789abc"))
	assert.Error(t, UUID.Validate("not-a-uuid"))
	assert.Error(t, UUID.Validate(""))
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
