package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableRecord(t *testing.T) {
	r := UnavailableRecord()
	assert.Equal(t, Unavailable, r.LegalName)
	assert.Equal(t, Unavailable, r.Email)
	assert.False(t, r.HasEmail())
	assert.Equal(t, 0, r.FieldsFound())
}

func TestCarrierRecord_HasEmail(t *testing.T) {
	r := UnavailableRecord()
	r.Email = "ops@acme.com"
	assert.True(t, r.HasEmail())
	assert.Equal(t, 1, r.FieldsFound())

	r.Email = ""
	assert.False(t, r.HasEmail())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "not_found", NotFound().String())
	assert.Equal(t, "verification_mismatch(entity-type)", VerificationMismatch(ReasonEntityType).String())
	assert.Equal(t, "session_failure(field-read: Entity Type)", SessionFailure("field-read", "Entity Type").String())
	assert.True(t, Verified().IsVerified())
	assert.False(t, Inactive().IsVerified())
}
