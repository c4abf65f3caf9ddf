package liberty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// libertyLexer tokenizes the Liberty subset the writer emits: groups,
// simple attributes, complex attributes, quoted strings with line
// continuations, and C-style comments.
var libertyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Continuation", Pattern: `\\`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Number", Pattern: `[-+]?\d+(\.\d+)?([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.!]*`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Comma", Pattern: `,`},
})

// Value is one attribute operand: a quoted string, a number, or a bare
// keyword.
type Value struct {
	Str    *string  `parser:"  @String"`
	Num    *float64 `parser:"| @Number"`
	Symbol *string  `parser:"| @Ident"`
}

// Text returns the value as a string, unquoting string literals.
func (v Value) Text() string {
	switch {
	case v.Str != nil:
		return strings.Trim(*v.Str, `"`)
	case v.Num != nil:
		return strconv.FormatFloat(*v.Num, 'g', -1, 64)
	case v.Symbol != nil:
		return *v.Symbol
	}
	return ""
}

// Float returns the numeric value of a number or numeric string.
func (v Value) Float() (float64, bool) {
	if v.Num != nil {
		return *v.Num, true
	}
	if v.Str != nil {
		f, err := strconv.ParseFloat(strings.Trim(*v.Str, `"`), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// Statement is one entry in a group body. The three Liberty statement
// forms share a leading identifier:
//
//	name : value ;          simple attribute
//	name (v, ...) ;         complex attribute
//	name (v, ...) { ... }   group
type Statement struct {
	Name   string       `parser:"@Ident"`
	Simple *Value       `parser:"( Colon @@ Semi"`
	Params []*Value     `parser:"| LParen ( @@ ( Comma @@ )* )? RParen"`
	Body   []*Statement `parser:"  ( LBrace @@* RBrace | Semi )? )"`
}

// File is a parsed Liberty file: a single library group.
type File struct {
	Library *Statement `parser:"@@"`
}

// Parser parses the Liberty subset.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser builds the Liberty grammar.
func NewParser() (*Parser, error) {
	p, err := participle.Build[File](
		participle.Lexer(libertyLexer),
		participle.Elide("Whitespace", "Comment", "Continuation"),
	)
	if err != nil {
		return nil, fmt.Errorf("build liberty parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// MustParser is NewParser for package-level initialization.
func MustParser() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses Liberty source text.
func (p *Parser) Parse(src string) (*File, error) {
	f, err := p.parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse liberty: %w", err)
	}
	if f.Library == nil || f.Library.Name != "library" {
		return nil, fmt.Errorf("parse liberty: no library group")
	}
	return f, nil
}

// Arg returns the group's first parameter, typically its name.
func (s *Statement) Arg() string {
	if len(s.Params) == 0 {
		return ""
	}
	return s.Params[0].Text()
}

// Groups returns every sub-group with the given name.
func (s *Statement) Groups(name string) []*Statement {
	var out []*Statement
	for _, st := range s.Body {
		if st.Name == name && st.Simple == nil {
			out = append(out, st)
		}
	}
	return out
}

// Group returns the first sub-group with the given name and parameter,
// or nil. An empty arg matches any parameter.
func (s *Statement) Group(name, arg string) *Statement {
	for _, g := range s.Groups(name) {
		if arg == "" || g.Arg() == arg {
			return g
		}
	}
	return nil
}

// Attr returns the text of a simple attribute, or "" when absent.
func (s *Statement) Attr(name string) string {
	for _, st := range s.Body {
		if st.Name == name && st.Simple != nil {
			return st.Simple.Text()
		}
	}
	return ""
}

// Values parses a values complex attribute or group into its numeric
// matrix, one row per quoted string.
func (s *Statement) Values() ([][]float64, error) {
	v := s.Group("values", "")
	if v == nil {
		return nil, fmt.Errorf("group %s: no values attribute", s.Name)
	}
	matrix := make([][]float64, 0, len(v.Params))
	for _, param := range v.Params {
		row, err := parseNumList(param.Text())
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", s.Name, err)
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}

// Index returns the named index_N list of a table or template group.
func (s *Statement) Index(name string) ([]float64, error) {
	idx := s.Group(name, "")
	if idx == nil || len(idx.Params) == 0 {
		return nil, fmt.Errorf("group %s: no %s", s.Name, name)
	}
	return parseNumList(idx.Params[0].Text())
}

func parseNumList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", part)
		}
		out = append(out, f)
	}
	return out, nil
}
