package kdf

import (
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// ProfileSet names a small catalog of KDF profiles an operator can tune
// without recompiling (e.g. a deployment that wants a heavier memory cost
// than the spec default). It never overrides a header's *recorded*
// parameters on unlock. Init does not consult a ProfileSet: it always
// writes kdf.Standard, or kdf.Fast in fast-KDF mode.
type ProfileSet struct {
	Standard Params `yaml:"standard" mapstructure:"standard"`
	Fast     Params `yaml:"fast" mapstructure:"fast"`
}

// DefaultProfileSet returns the built-in Standard/Fast profiles.
func DefaultProfileSet() ProfileSet {
	return ProfileSet{Standard: Standard, Fast: Fast}
}

// LoadProfileSet reads a YAML profile document (see DefaultProfileSet for the
// shape) and validates every profile it contains. A missing profile falls
// back to the built-in default for that name.
func LoadProfileSet(r io.Reader) (ProfileSet, error) {
	raw := map[string]map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return ProfileSet{}, fmt.Errorf("unable to decode kdf profile document: %w", err)
	}

	out := DefaultProfileSet()
	for name, dst := range map[string]*Params{"standard": &out.Standard, "fast": &out.Fast} {
		fields, ok := raw[name]
		if !ok {
			continue
		}
		var p Params
		if err := mapstructure.Decode(fields, &p); err != nil {
			return ProfileSet{}, fmt.Errorf("unable to decode profile %q: %w", name, err)
		}
		if err := p.Validate(); err != nil {
			return ProfileSet{}, fmt.Errorf("profile %q is invalid: %w", name, err)
		}
		*dst = p
	}

	return out, nil
}

// Params returns the profile named "fast" when fast is true, else "standard".
func (ps ProfileSet) Params(fast bool) Params {
	if fast {
		return ps.Fast
	}
	return ps.Standard
}
