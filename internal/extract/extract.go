// Package extract turns uploaded resume files into plain text.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Format is a declared upload format.
type Format string

const (
	PDF  Format = "pdf"
	DOCX Format = "docx"
)

// Formats lists the supported formats.
var Formats = []Format{PDF, DOCX}

// UnsupportedFormatError names a format outside the supported set.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Format)
}

// ExtractionError wraps a decode failure of a supported format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseFormat normalizes a declared format, ignoring case and surrounding whitespace.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case PDF, DOCX:
		return f, nil
	default:
		return "", &UnsupportedFormatError{Format: raw}
	}
}

// Extract returns the plain text of data decoded as format. The result is trimmed.
func Extract(data []byte, format Format) (string, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return "", err
	}

	var text string
	switch f {
	case PDF:
		text, err = extractPDF(data)
	case DOCX:
		text, err = extractDOCX(data)
	}
	if err != nil {
		return "", &ExtractionError{Format: f, Err: err}
	}
	return strings.TrimSpace(text), nil
}

func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}
	// the pdf reader panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	if content == "" {
		return "", errors.New("document.xml not found")
	}
	return stripDocxXML(content)
}

// stripDocxXML flattens word/document.xml to text. Only run text (w:t) is kept;
// paragraphs and breaks end with a newline and run tabs become a tab.
func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var (
		buf    strings.Builder
		inText bool
		inTabs bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				if !inTabs {
					buf.WriteString("\t")
				}
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p", "br", "cr":
				buf.WriteString("\n")
			}
		}
	}
	return buf.String(), nil
}
