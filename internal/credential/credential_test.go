package credential

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mediguard/pkg/domain-errors"
)

func TestParseOffer(t *testing.T) {
	t.Run("collects unreserved keys as attributes", func(t *testing.T) {
		c, err := ParseOffer([]byte(`{"id":"cred-1","type":"vaccination","iss":"demo_issuer","sig":"abc","vaccination_type":"COVID-19","dose":2,"booster":true,"note":null}`))
		require.NoError(t, err)

		assert.Equal(t, "cred-1", c.ID)
		assert.Equal(t, "vaccination", c.Type)
		assert.Equal(t, "demo_issuer", c.Issuer)
		assert.Equal(t, "abc", c.Signature)
		assert.Equal(t, map[string]string{
			"vaccination_type": "COVID-19",
			"dose":             "2",
			"booster":          "true",
		}, c.Attributes)
		assert.True(t, c.IssuedAt.IsZero())
	})

	t.Run("numeric id is accepted", func(t *testing.T) {
		c, err := ParseOffer([]byte(`{"id":42,"type":"t","iss":"i","sig":"s"}`))
		require.NoError(t, err)
		assert.Equal(t, "42", c.ID)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := ParseOffer([]byte(`{not json`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedPayload))
	})

	t.Run("JSON array", func(t *testing.T) {
		_, err := ParseOffer([]byte(`[1,2]`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedPayload))
	})

	t.Run("missing signing fields", func(t *testing.T) {
		_, err := ParseOffer([]byte(`{"id":"x","type":"t","iss":"i"}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedPayload))
		assert.Contains(t, err.Error(), "sig")
	})

	t.Run("bad issuedAt", func(t *testing.T) {
		_, err := ParseOffer([]byte(`{"type":"t","iss":"i","sig":"s","issuedAt":"yesterday"}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedPayload))
	})
}

func TestJSONRoundTripKeepsFlatShape(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Credential{
		ID:         "cred-1",
		Type:       "insurance",
		Issuer:     "demo_issuer",
		Signature:  "sig",
		Attributes: map[string]string{"insurance_status": "active"},
		IssuedAt:   issued,
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "active", flat["insurance_status"])
	assert.Equal(t, "demo_issuer", flat["iss"])

	var back Credential
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.ID, back.ID)
	assert.Equal(t, c.Attributes, back.Attributes)
	assert.True(t, issued.Equal(back.IssuedAt))
}

func TestValidateAndEffectiveID(t *testing.T) {
	err := Credential{Type: "t"}.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))

	withID := Credential{ID: "abc", Signature: "s"}
	assert.Equal(t, "abc", withID.EffectiveID())

	a := Credential{Signature: "same"}
	b := Credential{Signature: "same"}
	assert.Equal(t, a.EffectiveID(), b.EffectiveID())
	assert.NotEqual(t, a.EffectiveID(), Credential{Signature: "other"}.EffectiveID())
	assert.Empty(t, Credential{}.EffectiveID())
}
