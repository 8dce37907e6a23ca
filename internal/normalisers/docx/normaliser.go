// Package docx extracts text from Word documents, the other format
// procurement documents are commonly drafted in.
//
// Paragraphs become lines. Table rows become one line each, with cells
// separated by " | ", so price and lot tables survive chunking.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driven"
	"github.com/aguiargov/licita/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	bodyPart = "word/document.xml"
	corePart = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{normalisers.MIMETypeDOCX}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the body text and title of a DOCX file.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: not a docx archive", domain.ErrUnreadableSource, raw.URI)
	}

	body, err := readPart(archive, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnreadableSource, raw.URI, err)
	}
	content, err := extractText(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnreadableSource, raw.URI, err)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: %s: document body is empty", domain.ErrUnreadableSource, raw.URI)
	}

	title := normalisers.MetadataTitle(raw)
	if title == "" {
		title = coreTitle(archive)
	}

	return &driven.NormaliseResult{
		Document: normalisers.NewDocument(raw, title, content, "docx"),
	}, nil
}

var errMissingPart = errors.New("missing part")

func readPart(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w %s", errMissingPart, name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// tableRow collects the cells of one w:tr while it is open.
type tableRow struct {
	cells []string
	cell  strings.Builder
}

// extractText walks the WordprocessingML token stream. Only local names are
// matched so strict and transitional namespaces both work.
func extractText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines  []string
		para   strings.Builder
		rows   []*tableRow
		inText bool
	)

	// emit sends a finished line to the enclosing cell, or to the output
	// when not inside a table.
	emit := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		if len(rows) == 0 {
			lines = append(lines, line)
			return
		}
		cell := &rows[len(rows)-1].cell
		if cell.Len() > 0 {
			cell.WriteByte(' ')
		}
		cell.WriteString(line)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", bodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tr":
				rows = append(rows, &tableRow{})
			case "tc":
				if len(rows) > 0 {
					rows[len(rows)-1].cell.Reset()
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				emit(para.String())
				para.Reset()
			case "tc":
				if len(rows) > 0 {
					row := rows[len(rows)-1]
					row.cells = append(row.cells, strings.TrimSpace(row.cell.String()))
				}
			case "tr":
				if len(rows) == 0 {
					continue
				}
				row := rows[len(rows)-1]
				rows = rows[:len(rows)-1]
				if hasText(row.cells) {
					emit(strings.Join(row.cells, " | "))
				}
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}

func hasText(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return true
		}
	}
	return false
}

type coreProperties struct {
	Title string `xml:"title"`
}

// coreTitle reads dc:title from docProps/core.xml. Missing or unreadable
// properties yield "", leaving the file name as title.
func coreTitle(archive *zip.Reader) string {
	data, err := readPart(archive, corePart)
	if err != nil {
		return ""
	}
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}
