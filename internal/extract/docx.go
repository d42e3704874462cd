package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// paragraphsPerPage estimates DOCX page count.
const paragraphsPerPage = 20

// readDOCX returns the non-empty paragraphs of word/document.xml. Each table
// row becomes one paragraph with its cells joined by " | ".
func readDOCX(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", ErrCorruptFile, err)
	}
	defer r.Close()

	var doc *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found in archive", ErrCorruptFile)
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open document.xml: %v", ErrCorruptFile, err)
	}
	defer rc.Close()

	return parseDocumentXML(rc)
}

func parseDocumentXML(rd io.Reader) ([]string, error) {
	dec := xml.NewDecoder(rd)

	var (
		paragraphs []string
		para       strings.Builder
		cell       strings.Builder
		row        []string
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document.xml: %v", ErrCorruptFile, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
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
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else {
					paragraphs = append(paragraphs, text)
				}
			case "tc":
				if c := strings.TrimSpace(cell.String()); c != "" {
					row = append(row, c)
				}
			case "tr":
				if len(row) > 0 {
					paragraphs = append(paragraphs, strings.Join(row, " | "))
				}
			case "tbl":
				tableDepth--
			}
		}
	}
	return paragraphs, nil
}
