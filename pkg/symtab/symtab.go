package symtab

import (
	"fmt"
	"io"
	"sort"
)

// SourceCodeType is the declared type of a symbol. The language only knows
// int; Unknown marks names that were never declared.
type SourceCodeType int

const (
	Unknown SourceCodeType = iota
	Int
)

func (t SourceCodeType) String() string {
	switch t {
	case Int:
		return "Int"
	default:
		return "null"
	}
}

type Entry struct {
	Name string
	Type SourceCodeType
}

func (e *Entry) SetType(t SourceCodeType) { e.Type = t }

type Table struct {
	entries map[string]*Entry
}

func New() *Table { return &Table{entries: make(map[string]*Entry)} }

func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Add inserts name if absent and returns its entry.
func (t *Table) Add(name string) *Entry {
	if e, ok := t.entries[name]; ok {
		return e
	}
	e := &Entry{Name: name}
	t.entries[name] = e
	return e
}

// Get returns nil when name is not in the table.
func (t *Table) Get(name string) *Entry { return t.entries[name] }

func (t *Table) Len() int { return len(t.entries) }

// Entries returns copies of all entries sorted by name.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dump writes one "(name, type)" line per entry.
func (t *Table) Dump(w io.Writer) error {
	for _, e := range t.Entries() {
		if _, err := fmt.Fprintf(w, "(%s, %s)\n", e.Name, e.Type); err != nil {
			return err
		}
	}
	return nil
}
