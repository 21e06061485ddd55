// Package credential defines the holder-side credential record and its flat
// JSON wire form, shared by the issuer, the code scheme and the wallet.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	dErrors "mediguard/pkg/domain-errors"
)

// Reserved top-level keys of the wire form. Everything else is an attribute.
const (
	fieldID       = "id"
	fieldType     = "type"
	fieldIssuer   = "iss"
	fieldSig      = "sig"
	fieldIssuedAt = "issuedAt"
)

// Credential is a signed set of attributes held in a wallet.
type Credential struct {
	ID         string
	Type       string
	Issuer     string
	Signature  string
	Attributes map[string]string
	IssuedAt   time.Time
}

// offerFields is the mapstructure target for a decoded wire object.
type offerFields struct {
	ID        string         `mapstructure:"id"`
	Type      string         `mapstructure:"type"`
	Issuer    string         `mapstructure:"iss"`
	Signature string         `mapstructure:"sig"`
	IssuedAt  string         `mapstructure:"issuedAt"`
	Rest      map[string]any `mapstructure:",remain"`
}

// Validate enforces the signing fields every credential must carry.
func (c Credential) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Type) == "" {
		missing = append(missing, fieldType)
	}
	if strings.TrimSpace(c.Issuer) == "" {
		missing = append(missing, fieldIssuer)
	}
	if strings.TrimSpace(c.Signature) == "" {
		missing = append(missing, fieldSig)
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeInvalidCredential, "credential missing "+strings.Join(missing, ", "))
	}
	return nil
}

// EffectiveID returns the credential ID, or an identifier derived from the
// signature when the issuer did not assign one. Re-importing the same
// id-less offer therefore still deduplicates.
func (c Credential) EffectiveID() string {
	if c.ID != "" {
		return c.ID
	}
	if c.Signature == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.Signature))
	return "sig-" + hex.EncodeToString(sum[:8])
}

// ParseOffer decodes the JSON carried by a credential-import code.
// Unparseable JSON or a missing type/iss/sig yields CodeMalformedPayload.
func ParseOffer(data []byte) (Credential, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeMalformedPayload, "credential payload is not a JSON object")
	}
	c, err := fromMap(raw)
	if err != nil {
		return Credential{}, dErrors.Wrap(err, dErrors.CodeMalformedPayload, "credential payload has invalid fields")
	}
	if err := c.Validate(); err != nil {
		return Credential{}, dErrors.Recode(err, dErrors.CodeMalformedPayload, err.Error())
	}
	return c, nil
}

// MarshalJSON writes the flat wire form: reserved fields plus one key per attribute.
func (c Credential) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Attributes)+5)
	for k, v := range c.Attributes {
		out[k] = v
	}
	if c.ID != "" {
		out[fieldID] = c.ID
	}
	out[fieldType] = c.Type
	out[fieldIssuer] = c.Issuer
	out[fieldSig] = c.Signature
	if !c.IssuedAt.IsZero() {
		out[fieldIssuedAt] = c.IssuedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire form without enforcing required fields.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := fromMap(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func fromMap(raw map[string]any) (Credential, error) {
	var f offerFields
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Credential{}, fmt.Errorf("decode credential: %w", err)
	}

	c := Credential{
		ID:         strings.TrimSpace(f.ID),
		Type:       f.Type,
		Issuer:     f.Issuer,
		Signature:  f.Signature,
		Attributes: make(map[string]string, len(f.Rest)),
	}
	if f.IssuedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, f.IssuedAt)
		if err != nil {
			return Credential{}, fmt.Errorf("parse issuedAt: %w", err)
		}
		c.IssuedAt = ts
	}
	for k, v := range f.Rest {
		if s, ok := stringify(v); ok {
			c.Attributes[k] = s
		}
	}
	return c, nil
}

// stringify flattens a JSON scalar to its attribute string. Nulls are dropped;
// nested values keep their JSON text.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
