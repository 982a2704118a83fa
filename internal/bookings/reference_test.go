package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceFormat(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	assert.Equal(t, "BK17000000000000", referenceAt(at, 0))
	assert.Equal(t, "BK1700000000000999", referenceAt(at, 999))
}

func TestNewReferenceLooksValid(t *testing.T) {
	ref := NewReference()
	assert.True(t, ValidReference(ref), "generated reference %q should validate", ref)
}

func TestValidReference(t *testing.T) {
	assert.True(t, ValidReference("BK1700000000000123"))
	assert.False(t, ValidReference("BK"))
	assert.False(t, ValidReference("XX1700000000000123"))
	assert.False(t, ValidReference("BK17000000abc"))
	assert.False(t, ValidReference(""))
}
