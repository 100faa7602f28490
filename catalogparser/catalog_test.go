package catalogparser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/giygas/prescriptions-api/catalogparser/entities"
)

const tylenolDataset = `brand_name,active_ingredients,dosage_form,route
Tylenol,Acetaminophen (500 mg),Tablet,Oral
Tylenol,Acetaminophen (500mg),Tablet,Oral
`

// The two rows differ only in the spacing of the dose, so they merge once it is normalized
func TestBuildCatalogDeduplicates(t *testing.T) {
	entries, err := BuildCatalog([]byte(tylenolDataset))
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	expected := []entities.CatalogEntry{
		{DrugName: "Tylenol", Dose: "500mg", Form: "Tablet", Route: "Oral"},
	}
	if !reflect.DeepEqual(entries, expected) {
		t.Fatalf("Expected %+v, got %+v", expected, entries)
	}

	labelled := ComputeLabels(entries)
	if labelled[0].Label != "Tylenol 500mg (Tablet, Oral)" {
		t.Errorf("Unexpected label %q", labelled[0].Label)
	}

	catalog, err := ParseCatalog([]byte(tylenolDataset), "tylenol.csv")
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("Expected 1 catalog entry, got %d", catalog.Len())
	}
	entry, err := catalog.Lookup("Tylenol 500mg (Tablet, Oral)")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Dose != "500mg" {
		t.Errorf("Expected dose 500mg, got %q", entry.Dose)
	}
}

func TestBuildCatalogKeepsSourceOrder(t *testing.T) {
	raw := `route,dosage_form,brand_name,active_ingredients,manufacturer
Oral,Tablet,Zyrtec,Cetirizine (10 mg),Acme
Oral,Capsule,Advil,Ibuprofen (200 mg),Acme
,,,Nothing (1 mg),Acme
Oral,Tablet,Zyrtec,Cetirizine (10 mg),Other
Topical,Cream,Advil,Ibuprofen,Acme
`
	entries, err := BuildCatalog([]byte(raw))
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	expected := []entities.CatalogEntry{
		{DrugName: "Zyrtec", Dose: "10mg", Form: "Tablet", Route: "Oral"},
		{DrugName: "Advil", Dose: "200mg", Form: "Capsule", Route: "Oral"},
		{DrugName: "Advil", Dose: "", Form: "Cream", Route: "Topical"},
	}
	if !reflect.DeepEqual(entries, expected) {
		t.Errorf("Expected %+v, got %+v", expected, entries)
	}
}

func TestBuildCatalogDropsMissingNames(t *testing.T) {
	raw := "brand_name,active_ingredients,dosage_form,route\n" +
		"   ,Aspirin (81 mg),Tablet,Oral\n" +
		",Aspirin (81 mg),Tablet,Oral\n" +
		"Bayer\n"

	entries, stats, err := buildEntries([]byte(raw), "test")
	if err != nil {
		t.Fatalf("buildEntries failed: %v", err)
	}

	if stats.RowsRead != 3 || stats.RowsMissingName != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	// short row: every missing field is empty, never "nil" or similar
	if entries[0] != (entities.CatalogEntry{DrugName: "Bayer"}) {
		t.Errorf("Unexpected entry %+v", entries[0])
	}
}

func TestExtractDose(t *testing.T) {
	tests := []struct {
		ingredients string
		expected    string
	}{
		{"Acetaminophen (500 mg)", "500mg"},
		{"Amoxicillin (250 mg / 5 mL)", "250mg/5mL"},
		{"Hydrocodone (5 mg) and Acetaminophen (325 mg)", "5mg"},
		{"Ibuprofen", ""},
		{"", ""},
		{"Saline ()", ""},
		{"Insulin (100\tunits / mL)", "100units/mL"},
	}

	for _, tt := range tests {
		t.Run(tt.ingredients, func(t *testing.T) {
			if got := ExtractDose(tt.ingredients); got != tt.expected {
				t.Errorf("ExtractDose(%q) = %q, expected %q", tt.ingredients, got, tt.expected)
			}
		})
	}
}

func TestBuildCatalogTrimsHeaderAndFields(t *testing.T) {
	raw := "\xEF\xBB\xBF brand_name , active_ingredients,dosage_form ,route\n" +
		"  Motrin , Ibuprofen (400 mg) , Tablet ,  Oral \n"

	entries, err := BuildCatalog([]byte(raw))
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	expected := entities.CatalogEntry{DrugName: "Motrin", Dose: "400mg", Form: "Tablet", Route: "Oral"}
	if len(entries) != 1 || entries[0] != expected {
		t.Errorf("Expected [%+v], got %+v", expected, entries)
	}
}

func TestBuildCatalogLatin1Fallback(t *testing.T) {
	raw := []byte("brand_name,active_ingredients,dosage_form,route\nDol\xe9pran,Parac\xe9tamol (1 g),Comprim\xe9,Orale\n")

	entries, stats, err := buildEntries(raw, "latin1.csv")
	if err != nil {
		t.Fatalf("buildEntries failed: %v", err)
	}
	if stats.Encoding != encodingLatin1 {
		t.Errorf("Expected encoding %s, got %s", encodingLatin1, stats.Encoding)
	}

	expected := entities.CatalogEntry{DrugName: "Dolépran", Dose: "1g", Form: "Comprimé", Route: "Orale"}
	if len(entries) != 1 || entries[0] != expected {
		t.Errorf("Expected [%+v], got %+v", expected, entries)
	}
}

func TestBuildCatalogErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target error
	}{
		{"empty", "", ErrEmptySource},
		{"whitespace only", " \n\n", ErrEmptySource},
		{"missing column", "brand_name,active_ingredients,route\nTylenol,Acetaminophen (500 mg),Oral\n", ErrMissingColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := BuildCatalog([]byte(tt.raw))
			if err == nil {
				t.Fatalf("Expected error, got %d entries", len(entries))
			}
			if entries != nil {
				t.Errorf("Expected no partial catalog, got %+v", entries)
			}
			if !IsDataLoad(err) {
				t.Errorf("Expected DataLoadError, got %T: %v", err, err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected error wrapping %v, got %v", tt.target, err)
			}
		})
	}
}

func TestBuildCatalogAcceptsBareQuotes(t *testing.T) {
	raw := "brand_name,active_ingredients,dosage_form,route\n" +
		"12\" Tape,Zinc oxide (2 %),Strip,Topical\n" +
		"Advil,Ibuprofen (200 mg),Capsule,Oral\n"

	entries, err := BuildCatalog([]byte(raw))
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}

	expected := []entities.CatalogEntry{
		{DrugName: `12" Tape`, Dose: "2%", Form: "Strip", Route: "Topical"},
		{DrugName: "Advil", Dose: "200mg", Form: "Capsule", Route: "Oral"},
	}
	if !reflect.DeepEqual(entries, expected) {
		t.Errorf("Expected %+v, got %+v", expected, entries)
	}
}

func TestBuildCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drugs.csv")
	if err := os.WriteFile(path, []byte(tylenolDataset), 0600); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}

	entries, err := BuildCatalogFromFile(path)
	if err != nil {
		t.Fatalf("BuildCatalogFromFile failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}

	_, err = BuildCatalogFromFile(filepath.Join(t.TempDir(), "missing.csv"))
	var loadErr *DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected DataLoadError for missing file, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected error to wrap os.ErrNotExist, got %v", err)
	}
}

func TestComputeLabels(t *testing.T) {
	entries := []entities.CatalogEntry{
		{DrugName: "Tylenol", Dose: "500mg", Form: "Tablet", Route: "Oral"},
		{DrugName: "Advil", Form: "Cream", Route: "Topical"},
		{DrugName: "Saline"},
	}

	labelled := ComputeLabels(entries)

	expected := []string{
		"Tylenol 500mg (Tablet, Oral)",
		"Advil  (Cream, Topical)",
		"Saline  (, )",
	}
	for i, e := range labelled {
		if e.Label != expected[i] {
			t.Errorf("Entry %d: expected label %q, got %q", i, expected[i], e.Label)
		}
	}

	for _, e := range entries {
		if e.Label != "" {
			t.Errorf("ComputeLabels mutated its input: %+v", e)
		}
	}

	if again := ComputeLabels(labelled); !reflect.DeepEqual(again, labelled) {
		t.Errorf("ComputeLabels is not idempotent: %+v vs %+v", again, labelled)
	}
}

func TestLookup(t *testing.T) {
	entries, err := BuildCatalog([]byte(tylenolDataset))
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}
	labelled := ComputeLabels(entries)

	got, err := Lookup(labelled, "Tylenol 500mg (Tablet, Oral)")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.DrugName != "Tylenol" || got.Dose != "500mg" {
		t.Errorf("Unexpected entry %+v", got)
	}

	_, err = Lookup(labelled, "Tylenol 500mg (Tablet,Oral)")
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	raw := []byte(`brand_name,active_ingredients,dosage_form,route
Zyrtec,Cetirizine (10 mg),Tablet,Oral
Advil,Ibuprofen (200 mg),Capsule,Oral
"A, B",X (1 mg),"Tablet, Oral",
A,X (1 mg),B,"Tablet, Oral"
`)

	catalog, err := ParseCatalog(raw, "inline")
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}

	if catalog.Len() != 4 {
		t.Errorf("Expected 4 entries, got %d", catalog.Len())
	}
	if catalog.Source() != "inline" {
		t.Errorf("Expected source inline, got %s", catalog.Source())
	}
	if catalog.Hash() == 0 {
		t.Error("Expected a content hash")
	}

	// "A, B 1mg (Tablet, Oral, )" vs "A 1mg (B, Tablet, Oral)" differ; these two do not collide
	if catalog.LabelCollisions() != 0 {
		t.Errorf("Expected no label collisions, got %d", catalog.LabelCollisions())
	}

	labels := catalog.Labels()
	for i := 1; i < len(labels); i++ {
		if labels[i-1] > labels[i] {
			t.Errorf("Labels are not sorted: %v", labels)
		}
	}

	entry, err := catalog.Lookup("Advil 200mg (Capsule, Oral)")
	if err != nil {
		t.Fatalf("Catalog.Lookup failed: %v", err)
	}
	if entry.Label != "Advil 200mg (Capsule, Oral)" {
		t.Errorf("Unexpected entry %+v", entry)
	}

	if _, err := catalog.Lookup("Unknown"); !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestCatalogLabelCollision(t *testing.T) {
	entries := []entities.CatalogEntry{
		{DrugName: "X", Dose: "1mg", Form: "Tablet, Oral", Route: "Oral"},
		{DrugName: "X", Dose: "1mg", Form: "Tablet", Route: "Oral, Oral"},
	}

	catalog := NewCatalog(entries, 1)

	if catalog.LabelCollisions() != 1 {
		t.Errorf("Expected 1 collision, got %d", catalog.LabelCollisions())
	}
	if len(catalog.Labels()) != 1 {
		t.Errorf("Expected 1 selectable label, got %d", len(catalog.Labels()))
	}

	entry, err := catalog.Lookup("X 1mg (Tablet, Oral, Oral)")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if entry.Form != "Tablet, Oral" {
		t.Errorf("Expected the first entry to win, got %+v", entry)
	}
}
