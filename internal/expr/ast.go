package expr

import (
	"fmt"
	"sort"
	"strings"
)

// Expression is the root of a parsed pin function. Grammar, loosest
// binding first: Or > Xor > And > Not > primary.
type Expression struct {
	Left *XorTerm   `parser:"@@"`
	Rest []*XorTerm `parser:"( '|' @@ )*"`
}

// XorTerm is a chain of exclusive-or operands.
type XorTerm struct {
	Left *AndTerm   `parser:"@@"`
	Rest []*AndTerm `parser:"( '^' @@ )*"`
}

// AndTerm is a chain of conjunction operands.
type AndTerm struct {
	Left *Unary   `parser:"@@"`
	Rest []*Unary `parser:"( '&' @@ )*"`
}

// Unary is an optionally negated primary.
type Unary struct {
	Not     bool     `parser:"( @'!'"`
	Operand *Unary   `parser:"  @@ )"`
	Primary *Primary `parser:"| @@"`
}

// Primary is a pin reference or a parenthesized subexpression.
type Primary struct {
	Pin *string     `parser:"  @Ident"`
	Sub *Expression `parser:"| '(' @@ ')'"`
}

// Assignment is a full function definition of the form "Y=!(A&B)".
type Assignment struct {
	Output string      `parser:"@Ident '='"`
	Fn     *Expression `parser:"@@"`
}

// Eval evaluates the expression under a static input assignment.
// Referencing a pin absent from the assignment is an error.
func (e *Expression) Eval(assign map[string]bool) (bool, error) {
	v, err := e.Left.eval(assign)
	if err != nil {
		return false, err
	}
	for _, t := range e.Rest {
		r, err := t.eval(assign)
		if err != nil {
			return false, err
		}
		v = v || r
	}
	return v, nil
}

func (t *XorTerm) eval(assign map[string]bool) (bool, error) {
	v, err := t.Left.eval(assign)
	if err != nil {
		return false, err
	}
	for _, a := range t.Rest {
		r, err := a.eval(assign)
		if err != nil {
			return false, err
		}
		v = v != r
	}
	return v, nil
}

func (t *AndTerm) eval(assign map[string]bool) (bool, error) {
	v, err := t.Left.eval(assign)
	if err != nil {
		return false, err
	}
	for _, u := range t.Rest {
		r, err := u.eval(assign)
		if err != nil {
			return false, err
		}
		v = v && r
	}
	return v, nil
}

func (u *Unary) eval(assign map[string]bool) (bool, error) {
	if u.Operand != nil {
		v, err := u.Operand.eval(assign)
		if err != nil {
			return false, err
		}
		if u.Not {
			return !v, nil
		}
		return v, nil
	}
	return u.Primary.eval(assign)
}

func (p *Primary) eval(assign map[string]bool) (bool, error) {
	if p.Pin != nil {
		v, ok := assign[*p.Pin]
		if !ok {
			return false, fmt.Errorf("pin %q not assigned", *p.Pin)
		}
		return v, nil
	}
	return p.Sub.Eval(assign)
}

// Pins returns the sorted set of pin names the expression references.
func (e *Expression) Pins() []string {
	seen := make(map[string]bool)
	e.collect(seen)
	pins := make([]string, 0, len(seen))
	for p := range seen {
		pins = append(pins, p)
	}
	sort.Strings(pins)
	return pins
}

func (e *Expression) collect(seen map[string]bool) {
	e.Left.collect(seen)
	for _, t := range e.Rest {
		t.collect(seen)
	}
}

func (t *XorTerm) collect(seen map[string]bool) {
	t.Left.collect(seen)
	for _, a := range t.Rest {
		a.collect(seen)
	}
}

func (t *AndTerm) collect(seen map[string]bool) {
	t.Left.collect(seen)
	for _, u := range t.Rest {
		u.collect(seen)
	}
}

func (u *Unary) collect(seen map[string]bool) {
	if u.Operand != nil {
		u.Operand.collect(seen)
		return
	}
	u.Primary.collect(seen)
}

func (p *Primary) collect(seen map[string]bool) {
	if p.Pin != nil {
		seen[*p.Pin] = true
		return
	}
	p.Sub.collect(seen)
}

// String renders the expression back to source form, fully
// parenthesized only where the grammar requires it.
func (e *Expression) String() string {
	parts := []string{e.Left.String()}
	for _, t := range e.Rest {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, "|")
}

func (t *XorTerm) String() string {
	parts := []string{t.Left.String()}
	for _, a := range t.Rest {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, "^")
}

func (t *AndTerm) String() string {
	parts := []string{t.Left.String()}
	for _, u := range t.Rest {
		parts = append(parts, u.String())
	}
	return strings.Join(parts, "&")
}

func (u *Unary) String() string {
	if u.Operand != nil {
		if u.Not {
			return "!" + u.Operand.String()
		}
		return u.Operand.String()
	}
	return u.Primary.String()
}

func (p *Primary) String() string {
	if p.Pin != nil {
		return *p.Pin
	}
	return "(" + p.Sub.String() + ")"
}
