package query

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

//go:embed presets.yaml
var presetsYAML []byte

// variantPreset is one templated query-rewrite rule for a language,
// loaded from presets.yaml. Mirrors the teacher's
// config.PreFilterConfig + go:embed pattern, scaled down to this
// package's needs.
type variantPreset struct {
	Template string                 `yaml:"template"`
	Kind     types.QueryVariantKind `yaml:"kind"`
}

var languagePresets map[string][]variantPreset

func init() {
	presets, err := loadPresets(presetsYAML)
	if err != nil {
		panic(fmt.Errorf("query: loading embedded presets.yaml: %w", err))
	}
	languagePresets = presets
}

// loadPresets parses and validates the language->template-rule mapping
// embedded from presets.yaml.
func loadPresets(data []byte) (map[string][]variantPreset, error) {
	var raw map[string][]variantPreset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("query: parsing presets.yaml: %w", err)
	}
	for lang, entries := range raw {
		for i, e := range entries {
			if e.Template == "" {
				return nil, fmt.Errorf("query: presets.yaml %s[%d]: template must not be empty", lang, i)
			}
			if e.Kind == "" {
				return nil, fmt.Errorf("query: presets.yaml %s[%d]: kind must not be empty", lang, i)
			}
		}
	}
	return raw, nil
}

// addPresetVariants applies every templated rewrite rule registered for
// lang, substituting {symbol} in each template before handing it to add.
func addPresetVariants(add func(string, types.QueryVariantKind), lang, symbol string) {
	for _, preset := range languagePresets[lang] {
		add(strings.ReplaceAll(preset.Template, "{symbol}", symbol), preset.Kind)
	}
}
