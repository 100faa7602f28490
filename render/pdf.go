package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/giygas/prescriptions-api/prescription"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const defaultPDFTimeout = 30 * time.Second

const pdfStyle = "body{font-family:Helvetica,Arial,sans-serif;font-size:12pt;color:#111;margin:0;padding:0.4in;} " +
	"h1{font-size:20pt;margin:0 0 0.2in 0;border-bottom:2px solid #111;} " +
	"table{border-collapse:collapse;width:100%;margin-bottom:0.2in;} " +
	"th,td{text-align:left;vertical-align:top;padding:0.05in 0.1in;border-bottom:1px solid #ccc;} " +
	"td:first-child{font-weight:700;width:2in;} " +
	".warning{background:#fde68a;border:2px solid #b45309;color:#78350f;font-weight:700;padding:0.08in 0.12in;margin:0.15in 0;} " +
	"pre.body{font-family:Courier,monospace;font-size:12pt;white-space:pre-wrap;border:1px solid #999;padding:0.12in;} " +
	".signature{margin-top:0.6in;} .signature .line{border-top:1px solid #111;width:3.5in;padding-top:0.04in;}"

// ChromiumPDFRenderer prints prescriptions to PDF with headless Chromium
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
	markdown   goldmark.Markdown
}

// NewChromiumPDFRenderer uses chromePath, or the first browser found on the system when empty
func NewChromiumPDFRenderer(chromePath string) *ChromiumPDFRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumPDFRenderer{
		chromePath: chromePath,
		timeout:    defaultPDFTimeout,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

func (r *ChromiumPDFRenderer) Format() string { return FormatPDF }

func (r *ChromiumPDFRenderer) Render(ctx context.Context, rx *prescription.Prescription) (*Document, error) {
	htmlDoc, err := r.buildHTML(rx)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				WithPageRanges("1").
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("failed to print prescription %s: %w", rx.ID, err)
	}

	return &Document{
		Filename:    filename(rx, "pdf"),
		ContentType: "application/pdf",
		Content:     pdf,
	}, nil
}

// buildHTML lays out the page: title, field table, warning, body, notes, signature
func (r *ChromiumPDFRenderer) buildHTML(rx *prescription.Prescription) (string, error) {
	var md strings.Builder
	md.WriteString("| Field | Value |\n|---|---|\n")
	for _, f := range headerFields(rx) {
		md.WriteString("| " + escapeMarkdown(f.Label) + " | " + escapeMarkdown(f.Value) + " |\n")
	}

	var fieldsHTML strings.Builder
	if err := r.markdown.Convert([]byte(md.String()), &fieldsHTML); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	var notesHTML strings.Builder
	if rx.Notes != "" {
		if err := r.markdown.Convert([]byte(rx.Notes), &notesHTML); err != nil {
			return "", fmt.Errorf("markdown convert notes: %w", err)
		}
	}

	warningHTML := ""
	if rx.Controlled {
		warningHTML = "<div class='warning'>" + html.EscapeString(ControlledWarning) + "</div>"
	}

	signer := html.EscapeString(rx.PrescriberName)

	return "<!doctype html><html><head><meta charset='utf-8'><title>Prescription</title>" +
		"<style>" + pdfStyle + "</style></head><body>" +
		"<h1>Prescription</h1>" +
		"<section class='fields'>" + fieldsHTML.String() + "</section>" +
		warningHTML +
		"<pre class='body'>" + html.EscapeString(rx.Body) + "</pre>" +
		"<section class='notes'>" + notesHTML.String() + "</section>" +
		"<div class='signature'><div class='line'>Signature: " + signer + "</div></div>" +
		"</body></html>", nil
}

// escapeMarkdown backslash-escapes ASCII punctuation so values render literally
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 && strings.ContainsRune("\\`*_{}[]()<>#+-.!|~&", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
