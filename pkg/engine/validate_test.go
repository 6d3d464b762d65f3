package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apembroke/switchboard/pkg/storage"
)

func TestValidatePayloadRequiredFields(t *testing.T) {
	fields := []storage.FieldSpec{
		{Name: "title", Type: storage.FieldTypeString, Required: true},
		{Name: "notes", Type: storage.FieldTypeString},
	}

	errs := ValidatePayload(storage.Document{"notes": "x"}, fields, true)
	assert.Len(t, errs, 1)
	assert.Equal(t, "title", errs[0].Field)
	assert.Equal(t, "title is required", errs[0].String())

	assert.Empty(t, ValidatePayload(storage.Document{"title": "hello"}, fields, true))

	// Whitespace-only strings do not satisfy required.
	errs = ValidatePayload(storage.Document{"title": "   "}, fields, true)
	assert.Len(t, errs, 1)

	// Presence is not enforced for partial updates.
	assert.Empty(t, ValidatePayload(storage.Document{}, fields, false))
}

func TestValidatePayloadEmailShape(t *testing.T) {
	fields := []storage.FieldSpec{
		{Name: "email", Type: storage.FieldTypeString, Required: true},
		{Name: "contact", Type: storage.FieldTypeString, Validation: ValidationHintEmail},
	}

	errs := ValidatePayload(storage.Document{"email": "nope", "contact": "also-nope"}, fields, true)
	assert.Len(t, errs, 2)

	assert.Empty(t, ValidatePayload(storage.Document{
		"email":   "a@example.com",
		"contact": "b@example.org",
	}, fields, true))

	// Email shape is still checked on partial updates when the value is supplied.
	errs = ValidatePayload(storage.Document{"email": "broken"}, fields, false)
	assert.Len(t, errs, 1)
}

func TestIsEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.com", "x+tag@sub.domain.org"}
	for _, s := range valid {
		assert.True(t, IsEmail(s), s)
	}
	invalid := []string{"", "plain", "@example.com", "a@", "a b@example.com", "a@b"}
	for _, s := range invalid {
		assert.False(t, IsEmail(s), s)
	}
}
