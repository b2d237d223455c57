package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// DOCXText returns the paragraphs of a Word document joined by newlines.
// Tabs and explicit breaks inside a paragraph are kept as whitespace.
func DOCXText(_ context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open docx: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("extract: docx has no %s", docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("extract: open %s: %w", docxBody, err)
	}
	defer rc.Close()

	paras, err := docxParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("extract: parse %s: %w", docxBody, err)
	}
	return strings.Join(paras, "\n"), nil
}

// docxParagraphs streams the WordprocessingML body and collects the text
// runs of each w:p element. Every w:p counts, not only top-level ones:
// table cell paragraphs come out in document order, and a text box nested
// inside a paragraph folds into that paragraph's text.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paras  []string
		cur    strings.Builder
		inPara int
		inRun  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if inPara == 0 {
					cur.Reset()
				}
				inPara++
			case "r":
				inRun++
			case "t":
				inText = true
			// tab stops in paragraph properties are also w:tab
			case "tab":
				if inRun > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if inRun > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				inPara--
				if inPara == 0 {
					paras = append(paras, cur.String())
				}
			case "r":
				inRun--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && inPara > 0 {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
