// Package catalog loads the flash-loan providers and strategies baked into the binary.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fd1az/dexter/business/flashloan/domain"
)

//go:embed catalog.yaml
var embedded []byte

// Default returns the built-in catalog.
func Default() (domain.Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode flash loan catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}
