package render

import (
	"context"
	"strings"

	"github.com/giygas/prescriptions-api/prescription"
)

// TextRenderer writes prescriptions as UTF-8 plain text
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

func (r *TextRenderer) Format() string { return FormatText }

// Render writes the header fields, the body and the notes, ending with a newline
func (r *TextRenderer) Render(_ context.Context, rx *prescription.Prescription) (*Document, error) {
	var b strings.Builder

	b.WriteString("PRESCRIPTION\n")
	for _, f := range headerFields(rx) {
		if f.Value == "" {
			continue
		}
		b.WriteString(f.Label + ": " + f.Value + "\n")
	}
	if rx.Controlled {
		b.WriteString("*** " + ControlledWarning + " ***\n")
	}

	b.WriteString("\n")
	b.WriteString(strings.TrimRight(rx.Body, "\n"))
	b.WriteString("\n")

	if rx.Notes != "" {
		b.WriteString("\nNotes: " + rx.Notes + "\n")
	}

	b.WriteString("\nSignature: ______________________________\n")

	return &Document{
		Filename:    filename(rx, "txt"),
		ContentType: "text/plain; charset=utf-8",
		Content:     []byte(b.String()),
	}, nil
}
