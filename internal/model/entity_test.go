package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidence_Valid(t *testing.T) {
	assert.True(t, ConfidenceLow.Valid())
	assert.True(t, ConfidenceMedium.Valid())
	assert.True(t, ConfidenceHigh.Valid())
	assert.False(t, Confidence("").Valid())
	assert.False(t, Confidence("certain").Valid())
}

func TestConfidence_AtLeastMedium(t *testing.T) {
	assert.False(t, ConfidenceLow.AtLeastMedium())
	assert.True(t, ConfidenceMedium.AtLeastMedium())
	assert.True(t, ConfidenceHigh.AtLeastMedium())
	assert.False(t, Confidence("bogus").AtLeastMedium())
}

func TestMatchCandidate_Retag(t *testing.T) {
	orig := MatchCandidate{
		Mention: WebMention{ID: 7, NameNorm: "ACME"},
		Entity:  RegistryEntity{ABN: "123", NameNorm: "ACME"},
		Score:   88,
		Method:  MethodFuzzyAmbiguous,
	}

	tagged := orig.Retag(MethodOracleAssisted)

	assert.Equal(t, MethodOracleAssisted, tagged.Method)
	// Original is untouched; Retag copies.
	assert.Equal(t, MethodFuzzyAmbiguous, orig.Method)
	assert.Equal(t, orig.Mention, tagged.Mention)
	assert.Equal(t, orig.Entity, tagged.Entity)
	assert.Equal(t, orig.Score, tagged.Score)
}
