package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSequence(t *testing.T) {
	assert.Equal(t, "LEAD-0001", FormatSequence("LEAD", 1))
	assert.Equal(t, "CL-0042", FormatSequence("CL", 42))
	assert.Equal(t, "PRJ-9999", FormatSequence("PRJ", 9999))
	assert.Equal(t, "INV-10001", FormatSequence("INV", 10001), "width grows past four digits")
}
