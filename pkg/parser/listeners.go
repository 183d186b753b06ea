package parser

import (
	"fmt"
	"io"

	"github.com/xplshn/lrc/pkg/grammar"
	"github.com/xplshn/lrc/pkg/symtab"
	"github.com/xplshn/lrc/pkg/token"
)

// ProductionCollector records every reduced production in order, which is
// the rightmost derivation of the input in reverse.
type ProductionCollector struct {
	Reduced []*grammar.Production
}

func (c *ProductionCollector) WhenShift(int, token.Token)   {}
func (c *ProductionCollector) WhenAccept(int)               {}
func (c *ProductionCollector) SetSymbolTable(*symtab.Table) {}

func (c *ProductionCollector) WhenReduce(_ int, prod *grammar.Production) {
	c.Reduced = append(c.Reduced, prod)
}

func (c *ProductionCollector) Indices() []int {
	out := make([]int, len(c.Reduced))
	for i, p := range c.Reduced {
		out[i] = p.Index
	}
	return out
}

// Dump writes one production per line.
func (c *ProductionCollector) Dump(w io.Writer) error {
	for _, p := range c.Reduced {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Tracer logs every driver action to W.
type Tracer struct {
	W io.Writer
}

func (t *Tracer) WhenShift(state int, tok token.Token) {
	fmt.Fprintf(t.W, "state %-3d shift  %s\n", state, tok)
}

func (t *Tracer) WhenReduce(state int, prod *grammar.Production) {
	fmt.Fprintf(t.W, "state %-3d reduce %d: %s\n", state, prod.Index, prod)
}

func (t *Tracer) WhenAccept(state int) { fmt.Fprintf(t.W, "state %-3d accept\n", state) }

func (t *Tracer) SetSymbolTable(*symtab.Table) {}
