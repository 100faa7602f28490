package entities

// RawRecord is one row of the source drug dataset as read from the file.
// Columns absent from a row are left empty.
type RawRecord struct {
	BrandName         string
	ActiveIngredients string
	DosageForm        string
	Route             string
}

// CatalogEntry is the canonical, de-duplicated form of a drug row.
// Label is empty until the entry goes through ComputeLabels.
type CatalogEntry struct {
	DrugName string `json:"drugName"`
	Dose     string `json:"dose"`
	Form     string `json:"form"`
	Route    string `json:"route"`
	Label    string `json:"label"`
}

// Key returns the tuple used for de-duplication.
func (e CatalogEntry) Key() [4]string {
	return [4]string{e.DrugName, e.Dose, e.Form, e.Route}
}
