// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// ParseTurtle parses the Turtle subset AFF4 writers emit into
// statements, in document order.
//
// Supported: @prefix/@base and their SPARQL-style forms, IRIs,
// prefixed names, the "a" keyword, blank node labels and [ ... ]
// property lists, predicate (;) and object (,) lists, short and long
// string literals with escapes, language tags (dropped), datatypes,
// integers, decimals, doubles, and booleans. Collections "( ... )"
// are not supported.
//
// Literals typed with an integer datatype become integer values.
// Literals typed with a hash datatype or xsd:hexBinary are hex-decoded
// and xsd:base64Binary literals base64-decoded into bytes values.
func ParseTurtle(r io.Reader) ([]aff4.Statement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading turtle: %w", err)
	}
	p := &turtleParser{
		input:    string(data),
		line:     1,
		prefixes: make(map[string]string),
	}
	if err := p.parseDocument(); err != nil {
		return nil, err
	}
	return p.statements, nil
}

type turtleParser struct {
	input      string
	pos        int
	line       int
	base       string
	prefixes   map[string]string
	blankCount int
	statements []aff4.Statement
}

func (p *turtleParser) errorf(format string, args ...any) error {
	return fmt.Errorf("turtle: line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func (p *turtleParser) eof() bool { return p.pos >= len(p.input) }

func (p *turtleParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *turtleParser) advance(n int) {
	for i := 0; i < n && p.pos < len(p.input); i++ {
		if p.input[p.pos] == '\n' {
			p.line++
		}
		p.pos++
	}
}

// skipSpace skips whitespace and comments.
func (p *turtleParser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.advance(1)
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.advance(1)
			}
		default:
			return
		}
	}
}

func (p *turtleParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.advance(1)
	return nil
}

// hasKeyword reports whether the input continues with keyword
// (case-insensitively) followed by a non-name character.
func (p *turtleParser) hasKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > len(p.input) || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	return end == len(p.input) || !isNameByte(p.input[end]) && p.input[end] != ':'
}

func (p *turtleParser) parseDocument() error {
	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}
		switch {
		case p.hasKeyword("@prefix"):
			p.advance(len("@prefix"))
			if err := p.parsePrefix(); err != nil {
				return err
			}
			if err := p.expect('.'); err != nil {
				return err
			}
		case p.hasKeyword("prefix"):
			p.advance(len("prefix"))
			if err := p.parsePrefix(); err != nil {
				return err
			}
		case p.hasKeyword("@base"):
			p.advance(len("@base"))
			if err := p.parseBase(); err != nil {
				return err
			}
			if err := p.expect('.'); err != nil {
				return err
			}
		case p.hasKeyword("base"):
			p.advance(len("base"))
			if err := p.parseBase(); err != nil {
				return err
			}
		default:
			if err := p.parseTriples(); err != nil {
				return err
			}
		}
	}
}

func (p *turtleParser) parsePrefix() error {
	p.skipSpace()
	start := p.pos
	for !p.eof() && p.peek() != ':' {
		if !isNameByte(p.peek()) {
			return p.errorf("invalid prefix name")
		}
		p.advance(1)
	}
	name := p.input[start:p.pos]
	if err := p.expect(':'); err != nil {
		return err
	}
	p.skipSpace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[name] = iri
	return nil
}

func (p *turtleParser) parseBase() error {
	p.skipSpace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.base = iri
	return nil
}

func (p *turtleParser) parseTriples() error {
	var subject aff4.URN
	if p.peek() == '[' {
		blank, err := p.parseBlankPropertyList()
		if err != nil {
			return err
		}
		subject = blank
		p.skipSpace()
		if p.peek() == '.' {
			p.advance(1)
			return nil
		}
	} else {
		var err error
		subject, err = p.parseResource()
		if err != nil {
			return err
		}
	}
	if err := p.parsePredicateObjectList(subject); err != nil {
		return err
	}
	return p.expect('.')
}

func (p *turtleParser) parsePredicateObjectList(subject aff4.URN) error {
	for {
		p.skipSpace()
		var predicate aff4.URN
		if p.peek() == 'a' && (p.pos+1 == len(p.input) || !isNameByte(p.input[p.pos+1]) && p.input[p.pos+1] != ':') {
			p.advance(1)
			predicate = aff4.RDFType
		} else {
			var err error
			predicate, err = p.parseResource()
			if err != nil {
				return err
			}
		}

		for {
			p.skipSpace()
			object, err := p.parseObject()
			if err != nil {
				return err
			}
			p.statements = append(p.statements, aff4.Statement{Subject: subject, Predicate: predicate, Object: object})
			p.skipSpace()
			if p.peek() != ',' {
				break
			}
			p.advance(1)
		}

		if p.peek() != ';' {
			return nil
		}
		// Repeated and trailing semicolons are allowed.
		for p.peek() == ';' {
			p.advance(1)
			p.skipSpace()
		}
		if c := p.peek(); c == '.' || c == ']' {
			return nil
		}
	}
}

func (p *turtleParser) parseBlankPropertyList() (aff4.URN, error) {
	p.advance(1) // [
	p.blankCount++
	blank := aff4.URN(fmt.Sprintf("_:b%d", p.blankCount))
	p.skipSpace()
	if p.peek() != ']' {
		if err := p.parsePredicateObjectList(blank); err != nil {
			return "", err
		}
	}
	if err := p.expect(']'); err != nil {
		return "", err
	}
	return blank, nil
}

// parseResource parses an IRI, prefixed name, or blank node label.
func (p *turtleParser) parseResource() (aff4.URN, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '<':
		iri, err := p.parseIRIRef()
		return aff4.URN(iri), err
	case c == '_' && p.pos+1 < len(p.input) && p.input[p.pos+1] == ':':
		p.advance(2)
		label := p.scanName()
		if label == "" {
			return "", p.errorf("empty blank node label")
		}
		return aff4.URN("_:" + label), nil
	case isNameByte(c) || c == ':':
		return p.parsePrefixedName()
	case p.eof():
		return "", p.errorf("unexpected end of input")
	default:
		return "", p.errorf("unexpected %q", c)
	}
}

func (p *turtleParser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", p.errorf("expected IRI")
	}
	p.advance(1)
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated IRI")
		}
		c := p.peek()
		switch {
		case c == '>':
			p.advance(1)
			return p.resolve(b.String()), nil
		case c == '\\':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		case c == '\n' || c == ' ':
			return "", p.errorf("invalid character in IRI")
		default:
			b.WriteByte(c)
			p.advance(1)
		}
	}
}

// resolve joins a relative IRI onto the base. Only the forms AFF4
// writers produce are handled: absolute IRIs, fragments, and plain
// relative paths.
func (p *turtleParser) resolve(iri string) string {
	if p.base == "" || strings.Contains(iri, "://") || strings.HasPrefix(iri, "aff4:") {
		return iri
	}
	if strings.HasPrefix(iri, "#") {
		return strings.SplitN(p.base, "#", 2)[0] + iri
	}
	if strings.HasSuffix(p.base, "/") || strings.HasSuffix(p.base, "#") {
		return p.base + iri
	}
	return p.base[:strings.LastIndexByte(p.base, '/')+1] + iri
}

func (p *turtleParser) parsePrefixedName() (aff4.URN, error) {
	start := p.pos
	prefix := p.scanName()
	if p.peek() != ':' {
		p.pos = start
		return "", p.errorf("expected prefixed name, found %q", prefix)
	}
	p.advance(1)
	namespace, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undeclared prefix %q", prefix)
	}
	local := p.scanLocal()
	return aff4.URN(namespace + local), nil
}

// scanName scans name characters, excluding a trailing dot.
func (p *turtleParser) scanName() string {
	start := p.pos
	for !p.eof() && isNameByte(p.peek()) {
		p.advance(1)
	}
	for p.pos > start && p.input[p.pos-1] == '.' {
		p.pos--
	}
	return p.input[start:p.pos]
}

// scanLocal scans the local part of a prefixed name, which may
// contain colons and backslash escapes.
func (p *turtleParser) scanLocal() string {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\\' && p.pos+1 < len(p.input):
			b.WriteByte(p.input[p.pos+1])
			p.advance(2)
		case isNameByte(c) || c == ':' || c == '%':
			b.WriteByte(c)
			p.advance(1)
		default:
			return trimTrailingDots(p, &b)
		}
	}
	return trimTrailingDots(p, &b)
}

func trimTrailingDots(p *turtleParser, b *strings.Builder) string {
	local := b.String()
	for strings.HasSuffix(local, ".") {
		local = local[:len(local)-1]
		p.pos--
	}
	return local
}

func isNameByte(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '_' || c == '-' || c == '.' || c >= 0x80
}

func (p *turtleParser) parseObject() (aff4.Value, error) {
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.parseLiteral()
	case c == '[':
		blank, err := p.parseBlankPropertyList()
		if err != nil {
			return aff4.Value{}, err
		}
		return aff4.Ref(blank), nil
	case c == '+' || c == '-' || ('0' <= c && c <= '9') || (c == '.' && p.pos+1 < len(p.input) && isDigit(p.input[p.pos+1])):
		return p.parseNumber()
	case p.hasKeyword("true") || p.hasKeyword("false"):
		word := p.scanName()
		return aff4.TypedText(word, aff4.XSDNamespace+"boolean"), nil
	case c == '(':
		return aff4.Value{}, p.errorf("collections are not supported")
	default:
		resource, err := p.parseResource()
		if err != nil {
			return aff4.Value{}, err
		}
		return aff4.Ref(resource), nil
	}
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func (p *turtleParser) parseNumber() (aff4.Value, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.advance(1)
	}
	datatype := aff4.XSDInteger
	for !p.eof() && isDigit(p.peek()) {
		p.advance(1)
	}
	if p.peek() == '.' && p.pos+1 < len(p.input) && isDigit(p.input[p.pos+1]) {
		datatype = aff4.XSDNamespace + "decimal"
		p.advance(1)
		for !p.eof() && isDigit(p.peek()) {
			p.advance(1)
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		datatype = aff4.XSDNamespace + "double"
		p.advance(1)
		if c := p.peek(); c == '+' || c == '-' {
			p.advance(1)
		}
		for !p.eof() && isDigit(p.peek()) {
			p.advance(1)
		}
	}
	lexical := p.input[start:p.pos]
	if lexical == "+" || lexical == "-" {
		return aff4.Value{}, p.errorf("invalid number")
	}
	return p.literalValue(lexical, datatype)
}

func (p *turtleParser) parseLiteral() (aff4.Value, error) {
	lexical, err := p.parseString()
	if err != nil {
		return aff4.Value{}, err
	}
	switch {
	case p.peek() == '@':
		// Language tags carry no meaning for AFF4 metadata.
		p.advance(1)
		for !p.eof() && (isNameByte(p.peek()) && p.peek() != '.') {
			p.advance(1)
		}
		return aff4.Text(lexical), nil
	case strings.HasPrefix(p.input[p.pos:], "^^"):
		p.advance(2)
		datatype, err := p.parseResource()
		if err != nil {
			return aff4.Value{}, err
		}
		return p.literalValue(lexical, datatype)
	default:
		return aff4.Text(lexical), nil
	}
}

func (p *turtleParser) parseString() (string, error) {
	quote := p.peek()
	long := strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3))
	if long {
		p.advance(3)
	} else {
		p.advance(1)
	}

	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string literal")
		}
		c := p.peek()
		switch {
		case long && strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3)):
			p.advance(3)
			// Up to two further quotes may close the content.
			for p.peek() == quote {
				b.WriteByte(quote)
				p.advance(1)
			}
			return b.String(), nil
		case !long && c == quote:
			p.advance(1)
			return b.String(), nil
		case !long && (c == '\n' || c == '\r'):
			return "", p.errorf("newline in short string literal")
		case c == '\\':
			if err := p.parseStringEscape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.advance(1)
		}
	}
}

func (p *turtleParser) parseStringEscape(b *strings.Builder) error {
	if p.pos+1 >= len(p.input) {
		return p.errorf("unterminated escape")
	}
	switch p.input[p.pos+1] {
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 'f':
		b.WriteByte('\f')
	case '"', '\'', '\\':
		b.WriteByte(p.input[p.pos+1])
	case 'u', 'U':
		r, err := p.parseUnicodeEscape()
		if err != nil {
			return err
		}
		b.WriteRune(r)
		return nil
	default:
		return p.errorf("invalid escape \\%c", p.input[p.pos+1])
	}
	p.advance(2)
	return nil
}

// parseUnicodeEscape parses \uXXXX or \UXXXXXXXX at the cursor.
func (p *turtleParser) parseUnicodeEscape() (rune, error) {
	if p.pos+1 >= len(p.input) {
		return 0, p.errorf("unterminated escape")
	}
	width := 4
	switch p.input[p.pos+1] {
	case 'u':
	case 'U':
		width = 8
	default:
		return 0, p.errorf("invalid escape \\%c", p.input[p.pos+1])
	}
	start := p.pos + 2
	if start+width > len(p.input) {
		return 0, p.errorf("truncated unicode escape")
	}
	code, err := strconv.ParseUint(p.input[start:start+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return 0, p.errorf("invalid unicode escape %q", p.input[p.pos:start+width])
	}
	p.advance(2 + width)
	return rune(code), nil
}

// literalValue converts a typed literal into the matching Value kind.
func (p *turtleParser) literalValue(lexical string, datatype aff4.URN) (aff4.Value, error) {
	value, err := LiteralValue(lexical, datatype)
	if err != nil {
		return aff4.Value{}, p.errorf("%v", err)
	}
	return value, nil
}

// LiteralValue converts the lexical form of a typed literal into a
// Value: integers for XSD integer types, decoded bytes for hash
// datatypes and the XSD binary types, text otherwise.
func LiteralValue(lexical string, datatype aff4.URN) (aff4.Value, error) {
	switch {
	case datatype == "" || datatype == aff4.XSDString:
		return aff4.Text(lexical), nil
	case aff4.IsIntegerDatatype(datatype):
		n, err := strconv.ParseInt(strings.TrimPrefix(lexical, "+"), 10, 64)
		if err != nil {
			return aff4.Value{}, fmt.Errorf("integer literal %q: %w", lexical, err)
		}
		return aff4.Integer(n), nil
	case aff4.IsHashDatatype(datatype) || datatype == aff4.XSDHexBinary:
		decoded, err := hex.DecodeString(strings.TrimSpace(lexical))
		if err != nil {
			return aff4.Value{}, fmt.Errorf("hex literal %q: %w", lexical, err)
		}
		return aff4.Bytes(decoded, datatype), nil
	case datatype == aff4.XSDBase64Binary:
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lexical))
		if err != nil {
			return aff4.Value{}, fmt.Errorf("base64 literal %q: %w", lexical, err)
		}
		return aff4.Bytes(decoded, datatype), nil
	default:
		return aff4.TypedText(lexical, datatype), nil
	}
}

// turtlePrefixes are used to abbreviate IRIs when writing.
var turtlePrefixes = []struct{ name, namespace string }{
	{"aff4", aff4.Namespace},
	{"rdf", aff4.RDFNamespace},
	{"xsd", aff4.XSDNamespace},
}

// WriteTurtle serializes statements grouped by subject, in the order
// given. Bytes values are written hex-encoded except under
// xsd:base64Binary.
func WriteTurtle(w io.Writer, statements []aff4.Statement) error {
	out := bufio.NewWriter(w)
	for _, prefix := range turtlePrefixes {
		fmt.Fprintf(out, "@prefix %s: <%s> .\n", prefix.name, prefix.namespace)
	}

	var subject aff4.URN
	var predicate aff4.URN
	for i, statement := range statements {
		switch {
		case i == 0 || statement.Subject != subject:
			if i > 0 {
				out.WriteString(" .\n")
			}
			fmt.Fprintf(out, "\n%s\n    %s %s", formatTerm(statement.Subject), formatTerm(statement.Predicate), formatValue(statement.Object))
		case statement.Predicate != predicate:
			fmt.Fprintf(out, " ;\n    %s %s", formatTerm(statement.Predicate), formatValue(statement.Object))
		default:
			fmt.Fprintf(out, ",\n        %s", formatValue(statement.Object))
		}
		subject, predicate = statement.Subject, statement.Predicate
	}
	if len(statements) > 0 {
		out.WriteString(" .\n")
	}
	return out.Flush()
}

func formatTerm(urn aff4.URN) string {
	s := string(urn)
	if strings.HasPrefix(s, "_:") {
		return s
	}
	for _, prefix := range turtlePrefixes {
		local, ok := strings.CutPrefix(s, prefix.namespace)
		if ok && isSimpleLocal(local) {
			return prefix.name + ":" + local
		}
	}
	return "<" + s + ">"
}

func isSimpleLocal(local string) bool {
	if local == "" || local[0] == '-' || local[0] == '.' || local[len(local)-1] == '.' {
		return false
	}
	for i := 0; i < len(local); i++ {
		if c := local[i]; !isNameByte(c) || c >= 0x80 {
			return false
		}
	}
	return true
}

func formatValue(value aff4.Value) string {
	switch value.Kind() {
	case aff4.KindInteger:
		n, _ := value.Integer()
		if value.Datatype() == aff4.XSDLong {
			return fmt.Sprintf("%q^^xsd:long", strconv.FormatInt(n, 10))
		}
		return strconv.FormatInt(n, 10)
	case aff4.KindText:
		text, _ := value.Text()
		if value.Datatype() == "" || value.Datatype() == aff4.XSDString {
			return quoteTurtle(text)
		}
		return quoteTurtle(text) + "^^" + formatTerm(value.Datatype())
	case aff4.KindBytes:
		data, _ := value.Bytes()
		lexical := hex.EncodeToString(data)
		if value.Datatype() == aff4.XSDBase64Binary {
			lexical = base64.StdEncoding.EncodeToString(data)
		}
		return quoteTurtle(lexical) + "^^" + formatTerm(value.Datatype())
	case aff4.KindURN:
		urn, _ := value.URN()
		return formatTerm(urn)
	default:
		return `""`
	}
}

func quoteTurtle(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
