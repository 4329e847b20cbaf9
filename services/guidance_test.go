package services

import (
	"testing"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGuidanceKey(t *testing.T) {
	cases := map[string]string{
		"Collect KYC Documents":    "collect kyc documents",
		"collect  KYC-Documents!":  "collect kyc documents",
		"  File   Application  ":   "file application",
		"Pay Application Fee (₹)":  "pay application fee",
		"respond_to_query":         "respond to query",
		"":                         "",
		"!!!":                      "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeGuidanceKey(input), "input %q", input)
	}
}

func TestLookupGuidanceFallbackChain(t *testing.T) {
	t.Run("name table hit", func(t *testing.T) {
		g := LookupGuidance("Collect KYC Documents", models.StageScrutiny)
		assert.True(t, g.RequiresAttachment)
		assert.Contains(t, g.Text, "PAN")
	})

	t.Run("stage fallback", func(t *testing.T) {
		g := LookupGuidance("Some unknown step", models.StageClarifications)
		assert.False(t, g.RequiresAttachment)
		assert.Equal(t, stageGuidance[models.StageClarifications], g.Text)
	})

	t.Run("generic fallback", func(t *testing.T) {
		g := LookupGuidance("Some unknown step", models.StageOnHold)
		assert.False(t, g.RequiresAttachment)
		assert.Equal(t, genericGuidance, g.Text)
	})
}
