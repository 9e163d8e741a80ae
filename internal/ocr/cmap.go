package ocr

import (
	"sort"
	"strings"
	"unicode/utf16"

	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// maxRangeSpan bounds a single bfrange so a hostile CMap cannot allocate
// an unbounded table.
const maxRangeSpan = 0xFFFF

// cmap maps font character codes to Unicode text, as read from a font's
// ToUnicode stream.
type cmap struct {
	codeLens []int // ascending
	m        map[string]string
}

// decode maps the bytes of a shown string to text. A nil cmap falls back to
// the single-byte decoding used for simple fonts. Codes with no mapping are
// dropped.
func (c *cmap) decode(b []byte) string {
	if c == nil {
		return decodeText(b)
	}

	var sb strings.Builder
	for i := 0; i < len(b); {
		n := 0
		for _, l := range c.codeLens {
			if i+l > len(b) {
				break
			}
			if s, ok := c.m[string(b[i:i+l])]; ok {
				sb.WriteString(s)
				n = l
				break
			}
		}
		if n == 0 {
			n = c.codeLens[0]
		}
		i += n
	}
	return sb.String()
}

// pageFonts returns the ToUnicode maps of the fonts in a page's resources,
// keyed by resource name. Fonts without a readable ToUnicode stream are
// left out.
func pageFonts(pctx *pdfmodel.Context, pageNr int) map[string]*cmap {
	_, _, attrs, err := pctx.PageDict(pageNr, false)
	if err != nil || attrs == nil || attrs.Resources == nil {
		return nil
	}
	obj, ok := attrs.Resources.Find("Font")
	if !ok {
		return nil
	}
	fonts, err := pctx.DereferenceDict(obj)
	if err != nil || fonts == nil {
		return nil
	}

	out := make(map[string]*cmap)
	for name, ref := range fonts {
		fd, err := pctx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		tu, ok := fd.Find("ToUnicode")
		if !ok {
			continue
		}
		sd, _, err := pctx.DereferenceStreamDict(tu)
		if err != nil || sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			continue
		}
		if cm := parseCMap(sd.Content); cm != nil {
			out[name] = cm
		}
	}
	return out
}

// parseCMap reads the codespacerange, bfchar and bfrange sections of a
// ToUnicode CMap. It returns nil when the stream maps nothing.
func parseCMap(data []byte) *cmap {
	var (
		ops  []operand
		lens = make(map[int]bool)
		m    = make(map[string]string)
	)

	lx := lexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			ops = append(ops, tok.operand)
			continue
		}

		switch tok.text {
		case "endcodespacerange":
			for i := 0; i+1 < len(ops); i += 2 {
				if ops[i].isString && len(ops[i].raw) > 0 {
					lens[len(ops[i].raw)] = true
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(ops); i += 2 {
				if ops[i].isString && ops[i+1].isString {
					m[string(ops[i].raw)] = unicodeText(ops[i+1].raw)
				}
			}
		case "endbfrange":
			bfRanges(ops, m)
		}
		ops = ops[:0]
	}

	if len(m) == 0 {
		return nil
	}
	if len(lens) == 0 {
		for k := range m {
			lens[len(k)] = true
		}
	}

	c := &cmap{m: m}
	for l := range lens {
		c.codeLens = append(c.codeLens, l)
	}
	sort.Ints(c.codeLens)
	return c
}

// bfRanges applies "<lo> <hi> <dst>" and "<lo> <hi> [<dst>...]" entries.
func bfRanges(ops []operand, m map[string]string) {
	for i := 0; i+2 < len(ops); {
		lo, hi := ops[i], ops[i+1]
		if !lo.isString || !hi.isString || len(lo.raw) != len(hi.raw) || len(lo.raw) > 4 {
			i++
			continue
		}
		i += 2

		start, end := codeValue(lo.raw), codeValue(hi.raw)
		if end < start || end-start > maxRangeSpan {
			continue
		}

		switch {
		case ops[i].arrayOpen:
			i++
			for code := start; i < len(ops) && !ops[i].arrayClose; i++ {
				if ops[i].isString && code <= end {
					m[string(codeBytes(code, len(lo.raw)))] = unicodeText(ops[i].raw)
					code++
				}
			}
			i++
		case ops[i].isString:
			dst := ops[i].raw
			for code := start; code <= end; code++ {
				m[string(codeBytes(code, len(lo.raw)))] = offsetText(dst, code-start)
			}
			i++
		default:
			i++
		}
	}
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func codeBytes(v uint32, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// unicodeText decodes a CMap destination string, which is UTF-16BE.
func unicodeText(b []byte) string {
	if len(b)%2 == 1 {
		return decodeText(b)
	}
	return string(utf16.Decode(utf16Units(b)))
}

// offsetText increments the last UTF-16 unit of dst by off.
func offsetText(dst []byte, off uint32) string {
	if len(dst) == 0 || len(dst)%2 == 1 {
		return unicodeText(dst)
	}
	u := utf16Units(dst)
	u[len(u)-1] += uint16(off)
	return string(utf16.Decode(u))
}

func utf16Units(b []byte) []uint16 {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return u
}
