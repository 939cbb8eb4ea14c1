package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/marginalia/errors"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		// Longest alternative first: the lexer takes the first alternative that matches.
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:px|pt|mm|em)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[][{}:;,]`},
	})

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment"),
	)
)

// Document is the root AST node for a marginalia document:
//
//	doc Name v1 {
//	  meta { title: "..." }
//	  options { font-size: 20px; width: 400 }
//	  text { "first part " "second part" }
//	  annotations key { name: "..."; span 9 12; from: "path" }
//	  relations key { directional: true; link 50 56 61 68 }
//	}
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one top-level section of a document.
type Section struct {
	Meta        *MetaSection        `parser:"  @@"`
	Options     *OptionsSection     `parser:"| @@"`
	Text        *TextSection        `parser:"| @@"`
	Annotations *AnnotationsSection `parser:"| @@"`
	Relations   *RelationsSection   `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Options != nil:
		return "options"
	case s.Text != nil:
		return "text"
	case s.Annotations != nil:
		return "annotations"
	case s.Relations != nil:
		return "relations"
	default:
		return "unknown"
	}
}

// MetaSection carries PDF metadata (title, author, subject, creator, keywords).
type MetaSection struct {
	Properties []*Property `parser:"'meta' '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// OptionsSection overrides drawing options (font-size, width, svg-width...).
type OptionsSection struct {
	Properties []*Property `parser:"'options' '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// TextSection holds the annotated text; its string literals are concatenated as is.
type TextSection struct {
	Parts []StringLiteral `parser:"'text' '{' Newline* ( @String ( ';' | Newline )* )* '}'"`
}

// Content joins the literals of the section.
func (t *TextSection) Content() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(string(p))
	}
	return b.String()
}

// AnnotationsSection declares one annotation group.
type AnnotationsSection struct {
	Pos   lexer.Position    `parser:"" json:"-"`
	Key   string            `parser:"'annotations' @Ident"`
	Items []*AnnotationItem `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// AnnotationItem is either an inline span or a group property.
type AnnotationItem struct {
	Span     *Span     `parser:"  @@"`
	Property *Property `parser:"| @@"`
}

// Span is `span <start> <end>`.
type Span struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Start int            `parser:"'span' @Number"`
	End   int            `parser:"@Number"`
}

// RelationsSection declares one relation group.
type RelationsSection struct {
	Pos   lexer.Position  `parser:"" json:"-"`
	Key   string          `parser:"'relations' @Ident"`
	Items []*RelationItem `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// RelationItem is either an inline link or a group property.
type RelationItem struct {
	Link     *Link     `parser:"  @@"`
	Property *Property `parser:"| @@"`
}

// Link is `link <fromStart> <fromEnd> <toStart> <toEnd>`.
type Link struct {
	Pos       lexer.Position `parser:"" json:"-"`
	FromStart int            `parser:"'link' @Number"`
	FromEnd   int            `parser:"@Number"`
	ToStart   int            `parser:"@Number"`
	ToEnd     int            `parser:"@Number"`
}

// Property uses colon syntax (key: value).
type Property struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Value is a property value.
type Value struct {
	Quoted *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Bool   *Boolean       `parser:"| @( 'true' | 'false' )"`
	List   *List          `parser:"| @@"`
	Record *Record        `parser:"| @@"`
}

// String returns scalar values as written, without quotes; lists and records yield "".
func (v *Value) String() string {
	switch {
	case v == nil:
		return ""
	case v.Quoted != nil:
		return string(*v.Quoted)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Bool != nil:
		return strconv.FormatBool(bool(*v.Bool))
	default:
		return ""
	}
}

// List captures `[ a, b ]`; newlines also separate items.
type List struct {
	Items []*Value `parser:"'[' ( Newline | ',' )* ( @@ ( Newline | ',' )* )* ']'"`
}

// Record captures `{ start: 9; end: 12 }`.
type Record struct {
	Fields []*Property `parser:"'{' Newline* ( @@ ( ';' | ',' | Newline )* )* '}'"`
}

// Map returns the record fields keyed by name with their scalar values.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Key] = f.Value.String()
	}
	return m
}

// Boolean captures the `true` and `false` keywords.
type Boolean bool

// Capture implements participle.Capture.
func (b *Boolean) Capture(values []string) error {
	*b = Boolean(len(values) > 0 && values[0] == "true")
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses DSL content from an io.Reader. Syntax errors carry INVALID_DOCUMENT.
func Parse(r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse("", r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "syntax error")
	}
	return doc, nil
}

// ParseString parses DSL content from a string.
func ParseString(input string) (*Document, error) {
	return Parse(strings.NewReader(input))
}
