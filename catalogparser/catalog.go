package catalogparser

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/giygas/prescriptions-api/catalogparser/entities"
	"github.com/giygas/prescriptions-api/logging"
)

// First parenthesized group of the ingredients text, e.g. "Acetaminophen (500 mg)"
var strengthRegex = regexp.MustCompile(`\(([^)]+)\)`)

// BuildStats summarizes what a build kept and dropped
type BuildStats struct {
	Encoding          string `json:"encoding"`
	RowsRead          int    `json:"rowsRead"`
	RowsMissingName   int    `json:"rowsMissingName"`
	DuplicatesRemoved int    `json:"duplicatesRemoved"`
	Entries           int    `json:"entries"`
}

// ExtractDose returns the first parenthesized group of ingredients with all
// whitespace removed, or "" when there is none.
func ExtractDose(ingredients string) string {
	match := strengthRegex.FindStringSubmatch(ingredients)
	if match == nil {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, match[1])
}

// normalizeRecord turns a raw row into its canonical entry.
// Missing values are already empty strings at this point; surrounding
// whitespace is dropped here and nowhere else.
func normalizeRecord(raw entities.RawRecord) entities.CatalogEntry {
	return entities.CatalogEntry{
		DrugName: strings.TrimSpace(raw.BrandName),
		Dose:     ExtractDose(raw.ActiveIngredients),
		Form:     strings.TrimSpace(raw.DosageForm),
		Route:    strings.TrimSpace(raw.Route),
	}
}

// BuildCatalog parses a raw dataset into the ordered, de-duplicated list of
// catalog entries. Labels are not set; see ComputeLabels.
func BuildCatalog(raw []byte) ([]entities.CatalogEntry, error) {
	entries, _, err := buildEntries(raw, "")
	return entries, err
}

// BuildCatalogFromFile reads path and builds its catalog entries
func BuildCatalogFromFile(path string) ([]entities.CatalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Err: err}
	}
	entries, _, err := buildEntries(raw, path)
	return entries, err
}

func buildEntries(raw []byte, source string) ([]entities.CatalogEntry, BuildStats, error) {
	reader, encoding := decodeSource(raw)
	stats := BuildStats{Encoding: encoding}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, stats, &DataLoadError{Source: source, Err: ErrEmptySource}
	}

	records, err := readRecords(reader)
	if err != nil {
		return nil, stats, &DataLoadError{Source: source, Err: fmt.Errorf("%s: %w", encoding, err)}
	}
	stats.RowsRead = len(records)

	seen := make(map[[4]string]struct{}, len(records))
	entries := make([]entities.CatalogEntry, 0, len(records))

	for _, record := range records {
		entry := normalizeRecord(record)
		if entry.DrugName == "" {
			stats.RowsMissingName++
			continue
		}

		key := entry.Key()
		if _, dup := seen[key]; dup {
			stats.DuplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}

		entries = append(entries, entry)
	}
	stats.Entries = len(entries)

	if stats.RowsMissingName > 0 || stats.DuplicatesRemoved > 0 {
		logging.Info("Drug dataset skip statistics",
			"source", source,
			"encoding", encoding,
			"missing_name", stats.RowsMissingName,
			"duplicates", stats.DuplicatesRemoved,
			"total_rows", stats.RowsRead,
			"entries", stats.Entries)
	}

	return entries, stats, nil
}

// FormatLabel renders the display label of an entry
func FormatLabel(e entities.CatalogEntry) string {
	return fmt.Sprintf("%s %s (%s, %s)", e.DrugName, e.Dose, e.Form, e.Route)
}

// ComputeLabels returns a copy of entries with Label set on each one.
// Applying it to its own output yields the same labels.
func ComputeLabels(entries []entities.CatalogEntry) []entities.CatalogEntry {
	labelled := make([]entities.CatalogEntry, len(entries))
	for i, e := range entries {
		e.Label = FormatLabel(e)
		labelled[i] = e
	}
	return labelled
}

// Lookup returns the entry whose label is exactly label
func Lookup(entries []entities.CatalogEntry, label string) (entities.CatalogEntry, error) {
	for _, e := range entries {
		if e.Label == label {
			return e, nil
		}
	}
	return entities.CatalogEntry{}, &NotFoundError{Label: label}
}

// Catalog is a labelled, read-only set of entries with an O(1) label index.
// It is never modified after NewCatalog returns and can be shared freely.
type Catalog struct {
	entries         []entities.CatalogEntry
	index           map[string]int
	labels          []string
	labelCollisions int
	hash            uint64
	source          string
	stats           BuildStats
	builtAt         time.Time
}

// NewCatalog labels entries and indexes them. When two entries render to the
// same label the first one wins.
func NewCatalog(entries []entities.CatalogEntry, hash uint64) *Catalog {
	labelled := ComputeLabels(entries)

	c := &Catalog{
		entries: labelled,
		index:   make(map[string]int, len(labelled)),
		labels:  make([]string, 0, len(labelled)),
		hash:    hash,
		builtAt: time.Now(),
	}

	for i, e := range labelled {
		if _, exists := c.index[e.Label]; exists {
			c.labelCollisions++
			logging.Warn("Duplicate catalog label, keeping first entry", "label", e.Label)
			continue
		}
		c.index[e.Label] = i
		c.labels = append(c.labels, e.Label)
	}
	sort.Strings(c.labels)

	return c
}

// ParseCatalog builds a Catalog straight from raw bytes, without caching
func ParseCatalog(raw []byte, source string) (*Catalog, error) {
	entries, stats, err := buildEntries(raw, source)
	if err != nil {
		return nil, err
	}
	c := NewCatalog(entries, xxhash.Sum64(raw))
	c.source = source
	c.stats = stats
	return c, nil
}

// Entries returns the labelled entries in source order. Callers must not modify the slice.
func (c *Catalog) Entries() []entities.CatalogEntry {
	return c.entries
}

// Labels returns the sorted selection labels. Callers must not modify the slice.
func (c *Catalog) Labels() []string {
	return c.labels
}

// Lookup returns the entry with the given label
func (c *Catalog) Lookup(label string) (entities.CatalogEntry, error) {
	if i, ok := c.index[label]; ok {
		return c.entries[i], nil
	}
	return entities.CatalogEntry{}, &NotFoundError{Label: label}
}

func (c *Catalog) Len() int             { return len(c.entries) }
func (c *Catalog) Hash() uint64         { return c.hash }
func (c *Catalog) Source() string       { return c.source }
func (c *Catalog) Stats() BuildStats    { return c.stats }
func (c *Catalog) BuiltAt() time.Time   { return c.builtAt }
func (c *Catalog) LabelCollisions() int { return c.labelCollisions }
