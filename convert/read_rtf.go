package convert

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// RTFReader parses Rich Text Format documents.
type RTFReader struct{}

// Read tokenizes the RTF stream into paragraphs, headings, tables and the
// \info properties.
func (RTFReader) Read(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := readAllContext(ctx, r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimLeft(string(data), " \t\r\n"), `{\rtf`) {
		return nil, NewError(KindLoadFailed, "source is not rtf", nil)
	}
	p := newRTFParser(data)
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

type rtfState struct {
	dest   string
	skip   bool
	bold   bool
	size   int
	uc     int
	intbl  bool
	buffer *strings.Builder
	stamp  *rtfStamp
}

type rtfStamp struct {
	yr, mo, dy, hr, min int
}

func (s *rtfStamp) time() time.Time {
	if s == nil || s.yr == 0 {
		return time.Time{}
	}
	mo := s.mo
	if mo == 0 {
		mo = 1
	}
	dy := s.dy
	if dy == 0 {
		dy = 1
	}
	return time.Date(s.yr, time.Month(mo), dy, s.hr, s.min, 0, 0, time.UTC)
}

type rtfParser struct {
	src       []byte
	pos       int
	doc       *Document
	state     rtfState
	stack     []rtfState
	para      strings.Builder
	cell      strings.Builder
	row       []string
	rows      [][]string
	skipChars int
	high      rune
}

// rtfInfoFields are \info destinations copied into document properties.
var rtfInfoFields = map[string]bool{
	"title": true, "subject": true, "author": true, "keywords": true,
	"doccomm": true, "operator": true, "category": true, "company": true,
}

// rtfIgnoredDestinations never contribute body text.
var rtfIgnoredDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "footer": true, "headerl": true,
	"headerr": true, "footerl": true, "footerr": true, "object": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "themedata": true,
	"colorschememapping": true, "latentstyles": true, "datastore": true,
	"creatim": true, "revtim": true, "printim": true, "buptim": true,
}

func newRTFParser(src []byte) *rtfParser {
	return &rtfParser{
		src:   src,
		doc:   &Document{},
		state: rtfState{size: 24, uc: 1},
	}
}

func (p *rtfParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '{':
			p.pos++
			p.stack = append(p.stack, p.state)
			p.state.buffer = nil
			p.state.stamp = nil
		case '}':
			p.pos++
			if len(p.stack) == 0 {
				return NewError(KindLoadFailed, "rtf has unbalanced braces", nil)
			}
			p.closeGroup()
		case '\\':
			p.pos++
			p.control()
		case '\r', '\n':
			p.pos++
		default:
			p.pos++
			p.emit(rune(c))
		}
	}
	if len(p.stack) > 0 {
		return NewError(KindLoadFailed, "rtf has unbalanced braces", nil)
	}
	p.flushParagraph()
	p.flushTable()
	return nil
}

func (p *rtfParser) closeGroup() {
	closing := p.state
	p.state = p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	if closing.buffer != nil && closing.dest != p.state.dest {
		p.assignInfo(closing.dest, strings.TrimSpace(closing.buffer.String()))
	}
	if closing.stamp != nil && closing.dest != p.state.dest {
		switch closing.dest {
		case "creatim":
			p.doc.Info.Created = closing.stamp.time()
		case "revtim":
			p.doc.Info.Modified = closing.stamp.time()
		}
	}
}

func (p *rtfParser) assignInfo(field, value string) {
	info := &p.doc.Info
	switch field {
	case "title":
		info.Title = value
	case "subject":
		info.Subject = value
	case "author":
		info.Creator = value
	case "keywords":
		info.Keywords = value
	case "doccomm":
		info.Description = value
	case "operator":
		info.LastModifiedBy = value
	case "category":
		info.Category = value
	case "company":
		info.Company = value
	}
}

func (p *rtfParser) control() {
	if p.pos >= len(p.src) {
		return
	}
	c := p.src[p.pos]
	if !isASCIILetter(c) {
		p.pos++
		switch c {
		case '\\', '{', '}':
			p.emit(rune(c))
		case '~':
			p.emit(' ')
		case '\'':
			if p.pos+2 <= len(p.src) {
				if v, err := strconv.ParseUint(string(p.src[p.pos:p.pos+2]), 16, 8); err == nil {
					p.emit(charmap.Windows1252.DecodeByte(byte(v)))
				}
				p.pos += 2
			}
		case '*':
			p.state.skip = true
		case '\r', '\n':
			p.endParagraph()
		}
		return
	}

	start := p.pos
	for p.pos < len(p.src) && isASCIILetter(p.src[p.pos]) {
		p.pos++
	}
	word := string(p.src[start:p.pos])

	hasParam := false
	param := 0
	numStart := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos > numStart {
		if v, err := strconv.Atoi(string(p.src[numStart:p.pos])); err == nil {
			hasParam = true
			param = v
		}
	}
	if p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}

	p.word(word, hasParam, param)
}

func (p *rtfParser) word(word string, hasParam bool, param int) {
	switch word {
	case "par":
		p.endParagraph()
	case "line":
		p.emit('\n')
	case "tab":
		p.emit('\t')
	case "b":
		p.state.bold = !hasParam || param != 0
	case "fs":
		if hasParam {
			p.state.size = param
		}
	case "plain":
		p.state.bold = false
		p.state.size = 24
	case "pard":
		p.state.intbl = false
	case "intbl":
		p.state.intbl = true
	case "cell":
		p.row = append(p.row, strings.TrimSpace(p.cell.String()))
		p.cell.Reset()
	case "row":
		if len(p.row) > 0 {
			p.rows = append(p.rows, p.row)
		}
		p.row = nil
	case "uc":
		if hasParam {
			p.state.uc = param
		}
	case "u":
		if hasParam {
			if param < 0 {
				param += 65536
			}
			p.emitUnicode(rune(param))
			p.skipChars = p.state.uc
		}
	case "yr", "mo", "dy", "hr", "min":
		if p.state.stamp != nil && hasParam {
			switch word {
			case "yr":
				p.state.stamp.yr = param
			case "mo":
				p.state.stamp.mo = param
			case "dy":
				p.state.stamp.dy = param
			case "hr":
				p.state.stamp.hr = param
			case "min":
				p.state.stamp.min = param
			}
		}
	default:
		switch {
		case rtfInfoFields[word]:
			p.state.dest = word
			p.state.buffer = &strings.Builder{}
		case word == "creatim" || word == "revtim":
			p.state.dest = word
			p.state.stamp = &rtfStamp{}
		case rtfIgnoredDestinations[word]:
			p.state.dest = word
		case p.state.skip:
			p.state.dest = word
		}
	}
}

func (p *rtfParser) emit(r rune) {
	if p.skipChars > 0 && r != '\n' && r != '\t' {
		p.skipChars--
		return
	}
	if p.state.skip {
		return
	}
	if p.state.buffer != nil {
		p.state.buffer.WriteRune(r)
		return
	}
	if p.state.dest != "" {
		return
	}
	if p.state.intbl {
		p.cell.WriteRune(r)
		return
	}
	p.para.WriteRune(r)
}

func (p *rtfParser) emitUnicode(r rune) {
	switch {
	case utf16.IsSurrogate(r) && r < 0xDC00:
		p.high = r
	case utf16.IsSurrogate(r) && p.high != 0:
		p.emit(utf16.DecodeRune(p.high, r))
		p.high = 0
	default:
		p.high = 0
		p.emit(r)
	}
}

func (p *rtfParser) endParagraph() {
	if p.state.intbl {
		p.cell.WriteRune('\n')
		return
	}
	p.flushParagraph()
}

func (p *rtfParser) flushParagraph() {
	text := strings.TrimSpace(p.para.String())
	p.para.Reset()
	if text == "" {
		return
	}
	p.flushTable()
	if level := rtfHeadingLevel(p.state.bold, p.state.size); level > 0 {
		p.doc.AddHeading(level, text)
		return
	}
	p.doc.AddParagraph(text)
}

func (p *rtfParser) flushTable() {
	if len(p.row) > 0 {
		p.rows = append(p.rows, p.row)
		p.row = nil
	}
	if len(p.rows) > 0 {
		p.doc.AddTable(p.rows)
		p.rows = nil
	}
}

// rtfHeadingLevel treats bold paragraphs of at least 12pt as headings,
// mapping font sizes onto the sizes RTFWriter emits.
func rtfHeadingLevel(bold bool, size int) int {
	if !bold {
		return 0
	}
	for i, s := range rtfHeadingSizes {
		if size >= s {
			return i + 1
		}
	}
	return 0
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
