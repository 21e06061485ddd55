package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimAll(t *testing.T) {
	a, b := "  apollo-pharmacy ", "\tage_18\n"
	TrimAll(&a, &b)
	assert.Equal(t, "apollo-pharmacy", a)
	assert.Equal(t, "age_18", b)
}

func TestTrimAttributes(t *testing.T) {
	assert.Nil(t, TrimAttributes(nil))
	got := TrimAttributes(map[string]string{" age ": " 34 ", "  ": "dropped", "vaccination_type": "COVID-19"})
	assert.Equal(t, map[string]string{"age": "34", "vaccination_type": "COVID-19"}, got)
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ProviderID":      "provider_id",
		"IssuerPublicKey": "issuer_public_key",
		"HTTPStatus":      "http_status",
		"limit":           "limit",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
