// Package catalog loads the chains and bridges baked into the binary.
package catalog

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/fd1az/dexter/business/crosschain/domain"
	"github.com/fd1az/dexter/internal/apperror"
)

//go:embed catalog.yaml
var embedded []byte

// Default returns the built-in chain and bridge catalog.
func Default() (domain.Catalog, error) {
	return Parse(embedded)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (domain.Catalog, error) {
	var c domain.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return domain.Catalog{}, apperror.New(apperror.CodeCatalogLoadFailed, apperror.WithCause(err), apperror.WithContext("decode"))
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, apperror.New(apperror.CodeCatalogLoadFailed, apperror.WithCause(err), apperror.WithContext("validate"))
	}
	return c, nil
}
