package ocr

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// minPrintableRatio is the share of non-space runes that must be printable
// for a decoded text layer to be returned.
const minPrintableRatio = 0.9

// PdfcpuReader reads the text layer of each page with pdfcpu, decoding the
// text-showing operators of the page content stream.
type PdfcpuReader struct{}

// NewPdfcpuReader creates a PdfcpuReader.
func NewPdfcpuReader() *PdfcpuReader {
	return &PdfcpuReader{}
}

// Pages implements PageReader. A page without a content stream yields "".
// Fonts with a ToUnicode map are decoded through it. Text that still comes
// out mostly unprintable is rejected with a PDFParseError.
func (p *PdfcpuReader) Pages(ctx context.Context, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, &PDFParseError{Err: eris.New("empty file")}
	}

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return nil, &PDFParseError{Err: eris.Wrap(err, "pdfcpu read")}
	}

	pages := make([]string, 0, pctx.PageCount)
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr: pdf extraction cancelled")
		}

		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil {
			return nil, &PDFParseError{Page: pageNr, Err: err}
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return nil, &PDFParseError{Page: pageNr, Err: err}
		}
		pages = append(pages, contentText(content, pageFonts(pctx, pageNr)))
	}

	if printableRatio(strings.Join(pages, "\n")) < minPrintableRatio {
		return nil, &PDFParseError{Err: eris.New("text layer uses a font encoding that cannot be decoded; set pdf.provider: pdftotext")}
	}
	return pages, nil
}

// printableRatio returns the share of non-space runes that are printable.
// Control characters, private-use runes and U+FFFD count against it.
func printableRatio(s string) float64 {
	var total, good int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsGraphic(r) && r != unicode.ReplacementChar && !unicode.Is(unicode.Co, r) {
			good++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(good) / float64(total)
}

// contentText decodes the text shown by a page content stream. Strings are
// decoded through the cmap of the font selected by Tf, if any. Line moves
// become newlines; blank lines and runs of spaces are collapsed.
func contentText(stream []byte, fonts map[string]*cmap) string {
	var (
		sb       strings.Builder
		operands []operand
		font     *cmap
	)

	newline := func() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
	}

	lx := lexer{data: stream}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok.operand)
			continue
		}

		switch tok.text {
		case "Tf":
			font = nil
			for _, op := range operands {
				if op.isName {
					font = fonts[op.name]
				}
			}
		case "Tj":
			sb.WriteString(font.decode(lastString(operands)))
		case "'", `"`:
			newline()
			sb.WriteString(font.decode(lastString(operands)))
		case "TJ":
			for _, op := range operands {
				switch {
				case op.isString:
					sb.WriteString(font.decode(op.raw))
				case op.isNumber && op.num < -250:
					sb.WriteByte(' ')
				}
			}
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].isNumber && operands[len(operands)-1].num != 0 {
				newline()
			} else if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case "T*", "Tm":
			newline()
		}
		operands = operands[:0]
	}

	return tidyLines(sb.String())
}

func lastString(ops []operand) []byte {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].isString {
			return ops[i].raw
		}
	}
	return nil
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

type tokenKind int

const (
	tokOperand tokenKind = iota
	tokOperator
)

type operand struct {
	isString   bool
	isNumber   bool
	isName     bool
	arrayOpen  bool
	arrayClose bool
	raw        []byte // string bytes before font decoding
	name       string
	num        float64
}

type token struct {
	kind    tokenKind
	text    string
	operand operand
}

// lexer splits a content stream or CMap into operands and operators.
// Dictionary brackets are skipped.
type lexer struct {
	data []byte
	pos  int
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokOperand, operand: operand{isString: true, raw: l.literal()}}, true
		case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
			l.pos += 2
		case c == '>' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '>':
			l.pos += 2
		case c == '<':
			return token{kind: tokOperand, operand: operand{isString: true, raw: l.hex()}}, true
		case c == '[':
			l.pos++
			return token{kind: tokOperand, operand: operand{arrayOpen: true}}, true
		case c == ']':
			l.pos++
			return token{kind: tokOperand, operand: operand{arrayClose: true}}, true
		case c == '{', c == '}', c == ')', c == '>':
			l.pos++
		case c == '/':
			l.pos++
			return token{kind: tokOperand, operand: operand{isName: true, name: l.word()}}, true
		default:
			w := l.word()
			if w == "" {
				l.pos++
				continue
			}
			if n, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokOperand, operand: operand{isNumber: true, num: n}}, true
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal reads a balanced (...) string, resolving escape sequences.
func (l *lexer) literal() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						val = val*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <...> string.
func (l *lexer) hex() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// decodeText maps PDF string bytes to text: UTF-16BE when BOM-prefixed,
// otherwise WinAnsi (Windows-1252), the encoding of the standard fonts.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return string(utf16.Decode(utf16Units(b[2:])))
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes)
	}
	return string(out)
}
