// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/studyhall-hq/studyhall/internal/domain"
)

// base URL for resolving relative links in uploaded HTML
var localBase = &url.URL{Scheme: "file", Path: "/"}

// Text extracts the plain text of an uploaded file according to its kind.
// Plain text and markdown pass through with invalid UTF-8 dropped.
func Text(data []byte, kind domain.FileKind) (string, error) {
	switch kind {
	case domain.FileKindPDF:
		return pdfText(data)
	case domain.FileKindDOCX:
		return docxText(data)
	case domain.FileKindHTML:
		return htmlText(data)
	case domain.FileKindText, domain.FileKindMarkdown:
		return strings.ToValidUTF8(string(data), ""), nil
	default:
		return "", fmt.Errorf("no extractor for file kind %q", kind)
	}
}

func pdfText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf parse: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx open: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("docx open: missing word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("docx open: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx parse: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}

	return sb.String(), nil
}

func htmlText(data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), localBase)
	if err != nil {
		return "", fmt.Errorf("html parse: %w", err)
	}
	return article.TextContent, nil
}
