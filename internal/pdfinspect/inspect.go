// Package pdfinspect reads basic facts about uploaded PDF documents.
package pdfinspect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Info describes a PDF.
type Info struct {
	Pages int
	// HasText is false for image-only (scanned) documents.
	HasText bool
}

// Inspect counts the pages of a PDF and checks the first pages for a text
// layer. At most maxTextPages pages are scanned for text.
func Inspect(data []byte) (info Info, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	info.Pages = reader.NumPage()
	for i := 1; i <= info.Pages && i <= maxTextPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			info.HasText = true
			break
		}
	}
	return info, nil
}

const maxTextPages = 3
