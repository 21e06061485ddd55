// Package predicate models the claims a verifier asks a holder to prove.
//
// Predicates are built from a fixed catalog rather than parsed from free text,
// so the only parsing surface is catalog-key lookup. Rendering to a
// human-readable string is a pure function of the predicate.
package predicate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	dErrors "mediguard/pkg/domain-errors"
)

// Type discriminates predicate shapes. Only comparisons exist today.
type Type string

const TypeComparison Type = "COMPARISON"

// Operator is the comparison applied between an attribute and the value.
type Operator string

const (
	OpGT       Operator = "GT"
	OpGTE      Operator = "GTE"
	OpLT       Operator = "LT"
	OpLTE      Operator = "LTE"
	OpEQ       Operator = "EQ"
	OpContains Operator = "CONTAINS"
)

// IsValid reports whether o is one of the supported operators.
func (o Operator) IsValid() bool {
	_, ok := operatorTemplates[o]
	return ok
}

// Predicate is an immutable attribute/operator/value triple.
type Predicate struct {
	Type      Type     `json:"type"`
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     string   `json:"value"`
}

// CatalogKey names an entry in the predicate catalog exposed to verifiers.
type CatalogKey string

const (
	KeyVaccinationCovid CatalogKey = "vaccination_covid"
	KeyAge18            CatalogKey = "age_18"
	KeyInsuranceActive  CatalogKey = "insurance_active"
)

var catalog = map[CatalogKey]Predicate{
	KeyVaccinationCovid: {Type: TypeComparison, Attribute: "vaccination_type", Operator: OpContains, Value: "COVID"},
	KeyAge18:            {Type: TypeComparison, Attribute: "age", Operator: OpGTE, Value: "18"},
	KeyInsuranceActive:  {Type: TypeComparison, Attribute: "insurance_status", Operator: OpEQ, Value: "active"},
}

// Rendering templates: attribute first, then value.
var operatorTemplates = map[Operator]string{
	OpGT:       "%s > %s",
	OpGTE:      "%s >= %s",
	OpLT:       "%s < %s",
	OpLTE:      "%s <= %s",
	OpEQ:       "%s = %s",
	OpContains: "%s contains %s",
}

// FromCatalogKey returns the predicate registered under key.
func FromCatalogKey(key string) (Predicate, error) {
	p, ok := catalog[CatalogKey(strings.TrimSpace(key))]
	if !ok {
		return Predicate{}, dErrors.New(dErrors.CodeUnknownPredicateKind, fmt.Sprintf("unknown predicate kind %q", key))
	}
	return p, nil
}

// CatalogKeys lists every catalog key in stable order.
func CatalogKeys() []CatalogKey {
	keys := make([]CatalogKey, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// HumanReadable renders p, e.g. "age >= 18". Underscores in the attribute
// name become spaces so the text reads naturally in history lists.
func (p Predicate) HumanReadable() string {
	tmpl, ok := operatorTemplates[p.Operator]
	if !ok {
		tmpl = "%s " + string(p.Operator) + " %s"
	}
	return fmt.Sprintf(tmpl, strings.ReplaceAll(p.Attribute, "_", " "), p.Value)
}

// ToHumanReadable is the free-function form of Predicate.HumanReadable.
func ToHumanReadable(p Predicate) string {
	return p.HumanReadable()
}

// Validate checks a predicate that arrived over a trust boundary.
func (p Predicate) Validate() error {
	if p.Type != TypeComparison {
		return dErrors.New(dErrors.CodeValidation, "predicate type must be COMPARISON")
	}
	if strings.TrimSpace(p.Attribute) == "" {
		return dErrors.New(dErrors.CodeValidation, "predicate attribute is required")
	}
	if !p.Operator.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unsupported predicate operator %q", p.Operator))
	}
	if strings.TrimSpace(p.Value) == "" {
		return dErrors.New(dErrors.CodeValidation, "predicate value is required")
	}
	return nil
}

// Evaluate reports whether the predicate holds over attributes.
// Ordering operators compare numerically; a non-numeric side never satisfies
// them. EQ and CONTAINS are case-insensitive.
func Evaluate(p Predicate, attributes map[string]string) bool {
	actual, ok := attributes[p.Attribute]
	if !ok {
		return false
	}

	switch p.Operator {
	case OpEQ:
		return strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(p.Value))
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(p.Value))
	case OpGT, OpGTE, OpLT, OpLTE:
		a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
		if err != nil {
			return false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return false
		}
		switch p.Operator {
		case OpGT:
			return a > v
		case OpGTE:
			return a >= v
		case OpLT:
			return a < v
		default:
			return a <= v
		}
	default:
		return false
	}
}
