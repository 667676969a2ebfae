// Package rules loads the protection rules baked into the binary.
package rules

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fd1az/dexter/business/mev/domain"
)

//go:embed default_rules.yaml
var defaultRules []byte

type ruleFile struct {
	Rules []domain.ProtectionRule `yaml:"rules"`
}

// Default returns the built-in protection rules.
func Default() ([]domain.ProtectionRule, error) {
	return Parse(defaultRules)
}

// Parse decodes and validates a rules document.
func Parse(data []byte) ([]domain.ProtectionRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for _, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
	}
	return f.Rules, nil
}
