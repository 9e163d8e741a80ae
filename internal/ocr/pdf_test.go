package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lab-assistant/internal/model"
)

// buildTextPDF creates a valid PDF with one line of text per page.
func buildTextPDF(pages ...string) []byte {
	n := len(pages)
	kids := make([]string, n)
	for i := range pages {
		kids[i] = strconv.Itoa(4+2*i) + " 0 R"
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(n) + " >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i, text := range pages {
		escaped := strings.ReplaceAll(text, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, "(", `\(`)
		escaped = strings.ReplaceAll(escaped, ")", `\)`)
		objs = append(objs,
			pageObj(5+2*i),
			streamObj("BT\n/F1 12 Tf\n72 720 Td\n("+escaped+") Tj\nET"),
		)
	}
	return assemblePDF(objs...)
}

// buildCIDFontPDF creates a one-page PDF whose text is shown with an
// Identity-H Type0 font, the way Google Docs and most non-Latin exports
// write it. The ToUnicode map is included only when toUnicode is set.
func buildCIDFontPDF(content string, toUnicode bool) []byte {
	font := "<< /Type /Font /Subtype /Type0 /BaseFont /AAAAAA+Arial /Encoding /Identity-H /DescendantFonts [6 0 R]"
	if toUnicode {
		font += " /ToUnicode 8 0 R"
	}
	font += " >>"

	cmap := `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0011> <002E>
endbfchar
3 beginbfrange
<0024> <003D> <0041>
<0044> <005D> <0061>
<0013> <0015> [<0030> <0031> <0032>]
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

	return assemblePDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [4 0 R] /Count 1 >>",
		font,
		pageObj(5),
		streamObj(content),
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /AAAAAA+Arial "+
			"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> "+
			"/FontDescriptor 7 0 R /CIDToGIDMap /Identity /DW 1000 >>",
		"<< /Type /FontDescriptor /FontName /AAAAAA+Arial /Flags 32 /FontBBox [0 -200 1000 900] "+
			"/ItalicAngle 0 /Ascent 900 /Descent -200 /CapHeight 700 /StemV 80 >>",
		streamObj(cmap),
	)
}

func pageObj(contentObj int) string {
	return "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
		strconv.Itoa(contentObj) + " 0 R /Resources << /Font << /F1 3 0 R >> >> >>"
}

func streamObj(data string) string {
	return "<< /Length " + strconv.Itoa(len(data)) + " >>\nstream\n" + data + "\nendstream"
}

// padOffset formats an xref byte offset as the 10-digit field PDF requires.
func padOffset(n int) string { return fmt.Sprintf("%010d", n) }

// assemblePDF numbers objs from 1 and writes them with correct xref offsets.
func assemblePDF(objs ...string) []byte {
	offsets := make([]int, len(objs)+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	for i, body := range objs {
		offsets[i+1] = b.Len()
		b.WriteString(strconv.Itoa(i+1) + " 0 obj\n" + body + "\nendobj\n")
	}

	xrefOffset := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(len(objs)+1) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objs); i++ {
		b.WriteString(padOffset(offsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(len(objs)+1) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}

func TestPdfcpuReader_Pages(t *testing.T) {
	data := buildTextPDF("Title: Floating Egg", "Observations: the egg floated", "Conclusion: salt raises density")

	pages, err := NewPdfcpuReader().Pages(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "Title: Floating Egg", pages[0])
	assert.Equal(t, "Observations: the egg floated", pages[1])
	assert.Equal(t, "Conclusion: salt raises density", pages[2])
}

func TestPdfcpuReader_PageBoundaryNewlines(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "Page " + strconv.Itoa(i+1)
		}
		ext := NewExtractor(NewPdfcpuReader(), &fakeRecognizer{})
		d := model.Document{Name: "report.pdf", Ext: model.ExtPDF, Data: buildTextPDF(texts...)}

		first, err := ext.Extract(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, n-1, strings.Count(first, "\n"), "pages=%d", n)

		second, err := ext.Extract(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestPdfcpuReader_EscapedText(t *testing.T) {
	pages, err := NewPdfcpuReader().Pages(context.Background(), buildTextPDF(`Mass (g) \ Volume`))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, `Mass (g) \ Volume`, pages[0])
}

func TestPdfcpuReader_InvalidPDF(t *testing.T) {
	_, err := NewPdfcpuReader().Pages(context.Background(), []byte("this is not a pdf"))
	require.Error(t, err)

	var pe *PDFParseError
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, pe.Page)
}

func TestPdfcpuReader_Empty(t *testing.T) {
	_, err := NewPdfcpuReader().Pages(context.Background(), nil)
	var pe *PDFParseError
	require.ErrorAs(t, err, &pe)
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "single Tj",
			stream: "BT /F1 12 Tf 72 720 Td (Hello World) Tj ET",
			want:   "Hello World",
		},
		{
			name:   "T star breaks lines",
			stream: "BT\n(Title) Tj\nT*\n(Hypothesis) Tj\nET",
			want:   "Title\nHypothesis",
		},
		{
			name:   "Td with vertical move breaks lines",
			stream: "BT 72 720 Td (Materials) Tj 0 -14 Td (Procedure) Tj ET",
			want:   "Materials\nProcedure",
		},
		{
			name:   "Td with horizontal move adds space",
			stream: "BT (Score) Tj 20 0 Td (7) Tj ET",
			want:   "Score 7",
		},
		{
			name:   "TJ kerning",
			stream: "BT [(Con) -20 (clusion) -500 (done)] TJ ET",
			want:   "Conclusion done",
		},
		{
			name:   "quote operator",
			stream: "BT (first) Tj (second) ' ET",
			want:   "first\nsecond",
		},
		{
			name:   "octal and escapes",
			stream: `BT (a\050b\051\\c\040d) Tj ET`,
			want:   `a(b)\c d`,
		},
		{
			name:   "nested parens",
			stream: "BT (f(x) = y) Tj ET",
			want:   "f(x) = y",
		},
		{
			name:   "hex string",
			stream: "BT <48656C6C6F> Tj ET",
			want:   "Hello",
		},
		{
			name:   "utf16 hex string",
			stream: "BT <FEFF00E9> Tj ET",
			want:   "é",
		},
		{
			name:   "winansi quotes",
			stream: "BT <93486F74945D> Tj ET",
			want:   "\u201cHot\u201d]",
		},
		{
			name:   "graphics only",
			stream: "q 100 0 0 100 72 692 cm /Im1 Do Q",
			want:   "",
		},
		{
			name:   "comments ignored",
			stream: "% generated\nBT (kept) Tj ET",
			want:   "kept",
		},
		{
			name:   "dictionary operands ignored",
			stream: "/Span << /MCID 0 >> BDC BT (Results) Tj ET EMC",
			want:   "Results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentText([]byte(tt.stream), nil))
		})
	}
}

func TestPdfcpuReader_CIDFontToUnicode(t *testing.T) {
	// "Salt water" then "pH 12." in glyph IDs.
	content := "BT\n/F1 11 Tf\n72 720 Td\n<00360044004F00570003005A0044005700480055> Tj\n" +
		"0 -14 Td\n[<0053002B>-250<00030014>(\\000\\025)<0011>] TJ\nET"

	pages, err := NewPdfcpuReader().Pages(context.Background(), buildCIDFontPDF(content, true))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Salt water\npH 12.", pages[0])
}

func TestPdfcpuReader_CIDFontWithoutToUnicode(t *testing.T) {
	content := "BT\n/F1 11 Tf\n72 720 Td\n<003600440044004F0003005A004400570048> Tj\nET"

	_, err := NewPdfcpuReader().Pages(context.Background(), buildCIDFontPDF(content, false))
	require.Error(t, err)

	var pe *PDFParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "pdf.provider: pdftotext")
}

func TestParseCMap(t *testing.T) {
	cm := parseCMap([]byte(`1 begincodespacerange <0000> <FFFF> endcodespacerange
2 beginbfchar <0003> <0020> <0100> <D83DDE00> endbfchar
2 beginbfrange <0024> <0026> <0041> <0013> <0014> [<0030> <0039>] endbfrange`))
	require.NotNil(t, cm)
	assert.Equal(t, []int{2}, cm.codeLens)

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "bfchar", in: []byte{0x00, 0x03}, want: " "},
		{name: "surrogate pair", in: []byte{0x01, 0x00}, want: "\U0001F600"},
		{name: "range offset", in: []byte{0x00, 0x24, 0x00, 0x25, 0x00, 0x26}, want: "ABC"},
		{name: "range array", in: []byte{0x00, 0x13, 0x00, 0x14}, want: "09"},
		{name: "unmapped code dropped", in: []byte{0x00, 0x24, 0x7F, 0x7F, 0x00, 0x26}, want: "AC"},
		{name: "trailing odd byte", in: []byte{0x00, 0x24, 0x00}, want: "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cm.decode(tt.in))
		})
	}
}

func TestParseCMap_Empty(t *testing.T) {
	assert.Nil(t, parseCMap([]byte("begincmap endcmap")))
	assert.Nil(t, parseCMap(nil))
}

func TestParseCMap_OneByteCodes(t *testing.T) {
	cm := parseCMap([]byte("1 beginbfchar <41> <0058> endbfchar"))
	require.NotNil(t, cm)
	assert.Equal(t, []int{1}, cm.codeLens)
	assert.Equal(t, "XX", cm.decode([]byte("AA")))
}

func TestContentText_FontSwitch(t *testing.T) {
	fonts := map[string]*cmap{
		"F2": parseCMap([]byte("1 beginbfchar <0001> <0042> endbfchar")),
	}
	stream := "BT /F1 12 Tf (A) Tj /F2 12 Tf <0001> Tj /F1 12 Tf (C) Tj ET"
	assert.Equal(t, "ABC", contentText([]byte(stream), fonts))
}

func TestPrintableRatio(t *testing.T) {
	assert.InDelta(t, 1.0, printableRatio(""), 1e-9)
	assert.InDelta(t, 1.0, printableRatio("Hypothesis: plants grow \u00e9"), 1e-9)
	assert.InDelta(t, 0.5, printableRatio("\x00$"), 1e-9)
	assert.Less(t, printableRatio("\x00$\x00%\x00&"), minPrintableRatio)
	assert.Less(t, printableRatio("\uE000\uFFFDa"), minPrintableRatio)
}
