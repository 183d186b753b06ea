package grammar

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed grammar.txt
var defaultSource string

type Symbol struct {
	Name     string
	Terminal bool
}

func (s Symbol) String() string { return s.Name }

// EndMarker is the terminal matched by the end-of-input token.
var EndMarker = Symbol{Name: "$", Terminal: true}

type Production struct {
	Index int
	Head  Symbol
	Body  []Symbol
}

func (p *Production) String() string {
	var sb strings.Builder
	sb.WriteString(p.Head.Name)
	sb.WriteString(" ->")
	for _, s := range p.Body {
		sb.WriteByte(' ')
		sb.WriteString(s.Name)
	}
	return sb.String()
}

// Grammar is a context-free grammar whose production 0 is the augmented
// start production S' -> S.
type Grammar struct {
	Productions  []*Production
	Start        Symbol
	source       string
	terminals    []Symbol
	nonterminals []Symbol
	byHead       map[string][]*Production
	nullable     map[string]bool
	first        map[string]map[string]bool
}

// Default returns the grammar lrc compiles with unless told otherwise.
func Default() *Grammar {
	g, err := Parse(defaultSource)
	if err != nil {
		panic(fmt.Sprintf("grammar: embedded grammar is invalid: %v", err))
	}
	return g
}

// DefaultSource is the text of the embedded grammar.
func DefaultSource() string { return defaultSource }

// Parse reads productions of the form "Head -> s1 s2 ... ;". Text after '#'
// up to the end of the line is ignored. Symbols never used as a head are
// terminals; the head of the first production is the start symbol.
func Parse(src string) (*Grammar, error) {
	var cleaned strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	type rawProd struct {
		head string
		body []string
	}
	var raws []rawProd
	heads := make(map[string]bool)
	entries := strings.Split(cleaned.String(), ";")
	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if i == len(entries)-1 {
			return nil, fmt.Errorf("production %q is not terminated by ';'", entry)
		}
		parts := strings.SplitN(entry, "->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("production %q has no '->'", entry)
		}
		head := strings.TrimSpace(parts[0])
		if head == "" || strings.ContainsAny(head, " \t\n") {
			return nil, fmt.Errorf("production %q must have exactly one head symbol", entry)
		}
		body := strings.Fields(parts[1])
		for _, s := range append([]string{head}, body...) {
			if s == EndMarker.Name {
				return nil, fmt.Errorf("production %q uses the reserved symbol '%s'", entry, EndMarker.Name)
			}
		}
		raws = append(raws, rawProd{head: head, body: body})
		heads[head] = true
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("grammar has no productions")
	}

	g := &Grammar{
		source:   src,
		byHead:   make(map[string][]*Production),
		nullable: make(map[string]bool),
		first:    make(map[string]map[string]bool),
	}
	g.Start = Symbol{Name: raws[0].head}
	augmented := g.Start.Name + "'"
	for heads[augmented] {
		augmented += "'"
	}

	seen := make(map[string]bool)
	symbol := func(name string) Symbol {
		s := Symbol{Name: name, Terminal: !heads[name]}
		if !seen[name] {
			seen[name] = true
			if s.Terminal {
				g.terminals = append(g.terminals, s)
			} else {
				g.nonterminals = append(g.nonterminals, s)
			}
		}
		return s
	}

	g.Productions = append(g.Productions, &Production{
		Index: 0, Head: Symbol{Name: augmented}, Body: []Symbol{g.Start},
	})
	for _, r := range raws {
		p := &Production{Index: len(g.Productions), Head: symbol(r.head)}
		for _, b := range r.body {
			p.Body = append(p.Body, symbol(b))
		}
		g.Productions = append(g.Productions, p)
	}
	for _, p := range g.Productions {
		g.byHead[p.Head.Name] = append(g.byHead[p.Head.Name], p)
	}
	g.computeFirst()
	return g, nil
}

func (g *Grammar) Source() string { return g.source }

// Augmented returns the production S' -> S.
func (g *Grammar) Augmented() *Production { return g.Productions[0] }

// Terminals lists terminals in order of first appearance, followed by the end marker.
func (g *Grammar) Terminals() []Symbol { return append(append([]Symbol(nil), g.terminals...), EndMarker) }

func (g *Grammar) Nonterminals() []Symbol { return append([]Symbol(nil), g.nonterminals...) }

func (g *Grammar) ProductionsOf(head string) []*Production { return g.byHead[head] }

// Production returns the production with the given index or nil.
func (g *Grammar) Production(index int) *Production {
	if index < 0 || index >= len(g.Productions) {
		return nil
	}
	return g.Productions[index]
}

func (g *Grammar) computeFirst() {
	for _, nt := range g.byHead {
		g.first[nt[0].Head.Name] = make(map[string]bool)
	}
	for changed := true; changed; {
		changed = false
		for _, p := range g.Productions {
			set := g.first[p.Head.Name]
			allNullable := true
			for _, s := range p.Body {
				if s.Terminal {
					if !set[s.Name] {
						set[s.Name] = true
						changed = true
					}
					allNullable = false
					break
				}
				for t := range g.first[s.Name] {
					if !set[t] {
						set[t] = true
						changed = true
					}
				}
				if !g.nullable[s.Name] {
					allNullable = false
					break
				}
			}
			if allNullable && !g.nullable[p.Head.Name] {
				g.nullable[p.Head.Name] = true
				changed = true
			}
		}
	}
}

// First returns FIRST(seq lookahead): the terminals that can begin seq,
// plus lookahead when seq can derive the empty string. The result is sorted.
func (g *Grammar) First(seq []Symbol, lookahead string) []string {
	set := make(map[string]bool)
	nullable := true
	for _, s := range seq {
		if s.Terminal {
			set[s.Name] = true
			nullable = false
			break
		}
		for t := range g.first[s.Name] {
			set[t] = true
		}
		if !g.nullable[s.Name] {
			nullable = false
			break
		}
	}
	if nullable && lookahead != "" {
		set[lookahead] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Nullable reports whether the nonterminal can derive the empty string.
func (g *Grammar) Nullable(name string) bool { return g.nullable[name] }
