package encoder

import (
	"encoding/json"
	"fmt"
	"os"
)

// tableSet mirrors one entry of the dataset JSON file: the raw
// before/after/result maps for a single variant, in both directions
// where the variant has both. This is the same shape
// original_source/phonetic_converter.py loads from
// phonetic_converter_dataset.json via load_dataset().
type tableSet struct {
	ToIPABefore   map[string]string `json:"toIPAbefore"`
	ToIPAAfter    map[string]string `json:"toIPAafter"`
	ToIPAResult   map[string]string `json:"toIPAresult"`
	FromIPABefore map[string]string `json:"fromIPAbefore"`
	FromIPAAfter  map[string]string `json:"fromIPAafter"`
	FromIPAResult map[string]string `json:"fromIPAresult"`
	Charsets      [3]string         `json:"charsets"`
}

// dataset is the top-level shape of the encoder tables file: one
// tableSet per variant class name.
type dataset struct {
	AlphabeticCharacterConverter            tableSet `json:"AlphabeticCharacterConverter"`
	AlphaNumericCharacterConverter          tableSet `json:"AlphaNumericCharacterConverter"`
	AlphaNumericSimplifiedCharacterConverter tableSet `json:"AlphaNumericSimplifiedCharacterConverter"`
	IPASimplifiedCharacterConverter         tableSet `json:"IPASimplifiedCharacterConverter"`
	IPACharacterConverter                   tableSet `json:"IPACharacterConverter"`
}

// LoadDataset reads the encoder tables file and builds all five
// Encoder variants from it.
func LoadDataset(path string) (map[Variant]*Encoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading encoder dataset: %w", err)
	}
	var ds dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parsing encoder dataset %s: %w", path, err)
	}
	return BuildAll(ds), nil
}

func BuildAll(ds dataset) map[Variant]*Encoder {
	return map[Variant]*Encoder{
		VariantIPA:                   newIPA(ds.IPACharacterConverter),
		VariantIPASimplified:         newIPASimplified(ds.IPASimplifiedCharacterConverter),
		VariantAlphabetic:            newAlphabetic(ds.AlphabeticCharacterConverter),
		VariantAlphaNumeric:          newAlphaNumeric(ds.AlphaNumericCharacterConverter),
		VariantAlphaNumericSimplified: newAlphaNumericSimplified(ds.AlphaNumericSimplifiedCharacterConverter),
	}
}

func newIPA(t tableSet) *Encoder {
	return &Encoder{
		variant:         VariantIPA,
		toIPAIdentity:   true,
		fromIPAIdentity: true,
		charsets:        t.Charsets,
	}
}

func newIPASimplified(t tableSet) *Encoder {
	return &Encoder{
		variant:                VariantIPASimplified,
		window:                 1,
		toIPAIdentity:          true,
		forceLengthMarkFromIPA: true,
		fromIPABefore:          t.FromIPABefore,
		fromIPAAfter:           t.FromIPAAfter,
		fromIPAResult:          t.FromIPAResult,
		charsets:               t.Charsets,
	}
}

func newAlphabetic(t tableSet) *Encoder {
	return &Encoder{
		variant:                VariantAlphabetic,
		window:                 1,
		zeroStripping:          true,
		emptyBaseOK:            true,
		forceLengthMarkFromIPA: true,
		toIPABefore:            t.ToIPABefore,
		toIPAAfter:             t.ToIPAAfter,
		toIPAResult:            t.ToIPAResult,
		fromIPABefore:          t.FromIPABefore,
		fromIPAAfter:           t.FromIPAAfter,
		fromIPAResult:          t.FromIPAResult,
	}
}

func newAlphaNumeric(t tableSet) *Encoder {
	return &Encoder{
		variant:       VariantAlphaNumeric,
		window:        4,
		toIPABefore:   t.ToIPABefore,
		toIPAAfter:    t.ToIPAAfter,
		toIPAResult:   t.ToIPAResult,
		fromIPABefore: t.FromIPABefore,
		fromIPAAfter:  t.FromIPAAfter,
		fromIPAResult: t.FromIPAResult,
	}
}

func newAlphaNumericSimplified(t tableSet) *Encoder {
	return &Encoder{
		variant:          VariantAlphaNumericSimplified,
		window:           1,
		toIPAUnsupported: true,
		fromIPABefore:    t.FromIPABefore,
		fromIPAAfter:     t.FromIPAAfter,
		fromIPAResult:    t.FromIPAResult,
	}
}
