package toolset

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/imyousuf/metricscarpet/internal/languages"
)

// Product is the software under analysis. Adapters read it and never
// modify it.
type Product struct {
	// Name labels the product in logs and tables.
	Name string
	// Location is the path handed to the external tool.
	Location string
	// Language is the product's source language tag.
	Language string
}

// NewProduct describes the product at location. The name is the base name
// of the path; an empty language is detected from the source tree.
func NewProduct(location, language string) (Product, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return Product{}, errors.Wrapf(err, "resolve %s", location)
	}
	if _, err := os.Stat(abs); err != nil {
		return Product{}, errors.Wrap(err, "product location")
	}
	p := Product{
		Name:     filepath.Base(abs),
		Location: abs,
		Language: languages.Normalize(language),
	}
	if p.Language == "" {
		if p.Language, err = languages.Detect(abs); err != nil {
			return Product{}, errors.Wrapf(err, "detect language of %s", abs)
		}
	}
	return p, nil
}
