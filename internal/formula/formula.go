package formula

import (
	"fmt"
	"strings"
)

// Formula is a parsed fixed-effects model formula of the form
// "response ~ term + term + a:b". Only main effects and two-way
// interactions are supported; an intercept is always included.
type Formula struct {
	Response string
	Terms    []Term
}

// Term is a single right-hand-side term: one variable, or an interaction
// between two or more.
type Term struct {
	Vars []string
}

func (t Term) String() string { return strings.Join(t.Vars, ":") }

// Parse parses a formula string. The left-hand side (response) may be
// empty, as when rebuilding a design matrix for prediction.
func Parse(s string) (*Formula, error) {
	parts := strings.SplitN(s, "~", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("formula %q: missing ~", s)
	}
	f := &Formula{Response: strings.TrimSpace(parts[0])}

	rhs := strings.TrimSpace(parts[1])
	if rhs == "" {
		return nil, fmt.Errorf("formula %q: empty right-hand side", s)
	}
	for _, raw := range strings.Split(rhs, "+") {
		term := strings.TrimSpace(raw)
		if term == "" {
			return nil, fmt.Errorf("formula %q: empty term", s)
		}
		if term == "1" {
			continue // intercept is implicit
		}
		var vars []string
		for _, v := range strings.Split(term, ":") {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, fmt.Errorf("formula %q: malformed interaction %q", s, term)
			}
			vars = append(vars, v)
		}
		f.Terms = append(f.Terms, Term{Vars: vars})
	}
	if len(f.Terms) == 0 {
		return nil, fmt.Errorf("formula %q: no terms", s)
	}
	return f, nil
}
