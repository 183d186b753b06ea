// Package lrtable builds canonical LR(1) action/goto tables from a grammar.
package lrtable

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/lrc/pkg/grammar"
)

type ActionKind int

const (
	Error ActionKind = iota
	Shift
	Reduce
	Accept
)

func (k ActionKind) String() string {
	switch k {
	case Shift:
		return "shift"
	case Reduce:
		return "reduce"
	case Accept:
		return "accept"
	default:
		return "error"
	}
}

// Action is the table entry for a state and a terminal. State is set for
// Shift, Production for Reduce.
type Action struct {
	Kind       ActionKind
	State      int
	Production *grammar.Production
}

func (a Action) String() string {
	switch a.Kind {
	case Shift:
		return fmt.Sprintf("s%d", a.State)
	case Reduce:
		return fmt.Sprintf("r%d", a.Production.Index)
	case Accept:
		return "acc"
	default:
		return ""
	}
}

type Conflict struct {
	State    int
	Terminal string
	Existing Action
	Incoming Action
}

// ConflictError reports that the grammar is not LR(1).
type ConflictError struct{ Conflicts []Conflict }

func (e *ConflictError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "grammar is not LR(1): %d conflict(s)", len(e.Conflicts))
	for _, c := range e.Conflicts {
		fmt.Fprintf(&sb, "\n  state %d on '%s': %s/%s", c.State, c.Terminal, c.Existing.Kind, c.Incoming.Kind)
	}
	return sb.String()
}

type Table struct {
	Grammar *grammar.Grammar
	actions []map[string]Action
	gotos   []map[string]int
}

func (t *Table) InitialState() int { return 0 }

func (t *Table) NumStates() int { return len(t.actions) }

// Action returns the Error action for unknown states or terminals.
func (t *Table) Action(state int, terminal string) Action {
	if state < 0 || state >= len(t.actions) {
		return Action{}
	}
	return t.actions[state][terminal]
}

func (t *Table) Goto(state int, nonterminal string) (int, bool) {
	if state < 0 || state >= len(t.gotos) {
		return 0, false
	}
	next, ok := t.gotos[state][nonterminal]
	return next, ok
}

// Expected lists the terminals that have a non-error action in state.
func (t *Table) Expected(state int) []string {
	if state < 0 || state >= len(t.actions) {
		return nil
	}
	var out []string
	for term := range t.actions[state] {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// Dump writes the table as a tab-separated grid: one row per state, one
// column per terminal then one per nonterminal.
func (t *Table) Dump(w io.Writer) error {
	terms := t.Grammar.Terminals()
	nonterms := t.Grammar.Nonterminals()
	var sb strings.Builder
	sb.WriteString("state")
	for _, s := range terms {
		sb.WriteString("\t" + s.Name)
	}
	for _, s := range nonterms {
		sb.WriteString("\t" + s.Name)
	}
	sb.WriteByte('\n')
	for st := range t.actions {
		fmt.Fprintf(&sb, "%d", st)
		for _, s := range terms {
			sb.WriteString("\t" + t.actions[st][s.Name].String())
		}
		for _, s := range nonterms {
			sb.WriteByte('\t')
			if next, ok := t.gotos[st][s.Name]; ok {
				fmt.Fprintf(&sb, "%d", next)
			}
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

type item struct {
	prod int
	dot  int
	look string
}

type itemSet []item

func (s itemSet) key() string {
	var sb strings.Builder
	for _, it := range s {
		fmt.Fprintf(&sb, "%d.%d.%s|", it.prod, it.dot, it.look)
	}
	return sb.String()
}

type builder struct {
	g      *grammar.Grammar
	states []itemSet
	index  map[string]int
}

func (b *builder) closure(kernel []item) itemSet {
	seen := make(map[item]bool, len(kernel))
	set := make(itemSet, 0, len(kernel))
	work := append([]item(nil), kernel...)
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[it] {
			continue
		}
		seen[it] = true
		set = append(set, it)

		body := b.g.Productions[it.prod].Body
		if it.dot >= len(body) || body[it.dot].Terminal {
			continue
		}
		lookaheads := b.g.First(body[it.dot+1:], it.look)
		for _, p := range b.g.ProductionsOf(body[it.dot].Name) {
			for _, la := range lookaheads {
				next := item{prod: p.Index, dot: 0, look: la}
				if !seen[next] {
					work = append(work, next)
				}
			}
		}
	}
	sort.Slice(set, func(i, j int) bool {
		if set[i].prod != set[j].prod {
			return set[i].prod < set[j].prod
		}
		if set[i].dot != set[j].dot {
			return set[i].dot < set[j].dot
		}
		return set[i].look < set[j].look
	})
	return set
}

func (b *builder) intern(set itemSet) (int, bool) {
	k := set.key()
	if id, ok := b.index[k]; ok {
		return id, false
	}
	id := len(b.states)
	b.states = append(b.states, set)
	b.index[k] = id
	return id, true
}

// Build constructs the canonical LR(1) automaton for g.
func Build(g *grammar.Grammar) (*Table, error) {
	b := &builder{g: g, index: make(map[string]int)}
	b.intern(b.closure([]item{{prod: 0, dot: 0, look: grammar.EndMarker.Name}}))

	symbols := append(g.Terminals(), g.Nonterminals()...)
	t := &Table{Grammar: g}
	var conflicts []Conflict

	for st := 0; st < len(b.states); st++ {
		set := b.states[st]
		actions := make(map[string]Action)
		gotos := make(map[string]int)

		setAction := func(term string, a Action) {
			if old, ok := actions[term]; ok && old != a {
				conflicts = append(conflicts, Conflict{State: st, Terminal: term, Existing: old, Incoming: a})
				return
			}
			actions[term] = a
		}

		for _, sym := range symbols {
			var kernel []item
			for _, it := range set {
				body := g.Productions[it.prod].Body
				if it.dot < len(body) && body[it.dot] == sym {
					kernel = append(kernel, item{prod: it.prod, dot: it.dot + 1, look: it.look})
				}
			}
			if len(kernel) == 0 {
				continue
			}
			next, _ := b.intern(b.closure(kernel))
			if sym.Terminal {
				setAction(sym.Name, Action{Kind: Shift, State: next})
			} else {
				gotos[sym.Name] = next
			}
		}

		for _, it := range set {
			p := g.Productions[it.prod]
			if it.dot < len(p.Body) {
				continue
			}
			if it.prod == 0 {
				setAction(it.look, Action{Kind: Accept})
			} else {
				setAction(it.look, Action{Kind: Reduce, Production: p})
			}
		}

		t.actions = append(t.actions, actions)
		t.gotos = append(t.gotos, gotos)
	}

	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	return t, nil
}

var (
	cacheMu sync.Mutex
	cache   = make(map[uint64]*Table)
)

// Cached parses src and builds its table, reusing a previously built table
// for identical grammar text.
func Cached(src string) (*Table, error) {
	key := xxhash.Sum64String(src)
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if t, ok := cache[key]; ok {
		return t, nil
	}
	g, err := grammar.Parse(src)
	if err != nil {
		return nil, err
	}
	t, err := Build(g)
	if err != nil {
		return nil, err
	}
	cache[key] = t
	return t, nil
}
