package catalogparser

import (
	"errors"
	"os"

	"github.com/giygas/prescriptions-api/logging"
)

// CatalogParser loads the configured drug dataset and builds its catalog.
// When a URL is configured the local file is refreshed from it first.
type CatalogParser struct {
	filePath string
	url      string
	builder  *Builder
}

// NewCatalogParser creates a parser for the dataset at filePath, optionally mirrored from url
func NewCatalogParser(filePath, url string) *CatalogParser {
	return &CatalogParser{
		filePath: filePath,
		url:      url,
		builder:  NewBuilder(defaultCacheSize),
	}
}

// ParseCatalog implements the Parser interface.
// A failed download falls back to the existing local copy when there is one.
func (p *CatalogParser) ParseCatalog() (*Catalog, error) {
	if p.url != "" {
		if err := downloadDataset(p.url, p.filePath); err != nil {
			if _, statErr := os.Stat(p.filePath); statErr != nil {
				return nil, &DataLoadError{Source: p.url, Err: errors.Join(err, statErr)}
			}
			logging.Warn("Dataset download failed, using local copy", "error", err, "path", p.filePath)
		}
	}

	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, &DataLoadError{Source: p.filePath, Err: err}
	}

	catalog, cached, err := p.builder.Build(raw, p.filePath)
	if err != nil {
		return nil, err
	}

	if cached {
		logging.Debug("Drug dataset unchanged, reusing cached catalog", "path", p.filePath)
	} else {
		logging.Info("Drug catalog built", "path", p.filePath, "entries", catalog.Len(), "encoding", catalog.Stats().Encoding)
	}

	return catalog, nil
}
