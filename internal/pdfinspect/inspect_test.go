package pdfinspect_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/pdfinspect"
)

// buildPDF assembles a minimal single-page PDF with a correct xref table.
// An empty text draws nothing, which is how scanned documents look.
func buildPDF(text string) []byte {
	content := "BT /F1 12 Tf 72 720 Td (" + text + ") Tj ET"
	if text == "" {
		content = "q Q"
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func TestInspect_TextLayer(t *testing.T) {
	info, err := pdfinspect.Inspect(buildPDF("Master Services Agreement"))
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.True(t, info.HasText)
}

func TestInspect_NoText(t *testing.T) {
	info, err := pdfinspect.Inspect(buildPDF(""))
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.False(t, info.HasText)
}

func TestInspect_Malformed(t *testing.T) {
	_, err := pdfinspect.Inspect([]byte("%PDF-1.7\nthis is not a pdf"))
	assert.Error(t, err)

	_, err = pdfinspect.Inspect(nil)
	assert.Error(t, err)
}
