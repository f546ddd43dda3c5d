// Package extract turns a parsed export into the denormalized record
// collections that get indexed.
//
// Extraction runs in a fixed order, each stage consuming the finished lookup
// tables of the stages before it:
//
//	biblios → patrons (+ addresses, fines, reserves) → holdings → checkouts
//
// Reserves and holdings must resolve their biblio; checkouts may or may not
// resolve their patron and holding.
package extract

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/ids"
	"github.com/mrlokans/apollo-indexer/internal/localtime"
	"github.com/mrlokans/apollo-indexer/internal/reference"
)

// Sink receives each collection as soon as its stage finishes, so a fatal
// error in a later stage leaves the earlier collections written.
type Sink interface {
	WriteCollection(name string, records any) error
}

// Extractor holds the per-run dependencies shared by every stage.
type Extractor struct {
	tables     *reference.Tables
	classifier reference.Classifier
	clock      *localtime.Normalizer
	ids        ids.Generator
}

// New creates an extractor.
func New(tables *reference.Tables, classifier reference.Classifier, clock *localtime.Normalizer, gen ids.Generator) *Extractor {
	return &Extractor{
		tables:     tables,
		classifier: classifier,
		clock:      clock,
		ids:        gen,
	}
}

// Result is the output of a full run.
type Result struct {
	Biblios   *Biblios
	Patrons   *Patrons
	Holdings  *Holdings
	Checkouts *Checkouts
}

// Run extracts every entity kind from doc in dependency order. sink may be nil.
func (x *Extractor) Run(doc *apollo.Document, sink Sink) (*Result, error) {
	if sink == nil {
		sink = discard{}
	}

	biblios, err := x.ExtractBiblios(doc.Biblios())
	if err != nil {
		return nil, err
	}
	if err := sink.WriteCollection(entities.CollectionBiblios, biblios.Records); err != nil {
		return nil, err
	}

	patrons, err := x.ExtractPatrons(doc.Patrons(), biblios)
	if err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name    string
		records any
	}{
		{entities.CollectionPatrons, patrons.Records},
		{entities.CollectionAddresses, patrons.Addresses},
		{entities.CollectionFines, patrons.Fines},
		{entities.CollectionReserves, patrons.Reserves},
	} {
		if err := sink.WriteCollection(c.name, c.records); err != nil {
			return nil, err
		}
	}

	holdings, err := x.ExtractHoldings(doc.Holdings(), biblios)
	if err != nil {
		return nil, err
	}
	if err := sink.WriteCollection(entities.CollectionHoldings, holdings.Records); err != nil {
		return nil, err
	}

	checkouts, err := x.ExtractCheckouts(doc.Checkouts(), patrons, holdings)
	if err != nil {
		return nil, err
	}
	if err := sink.WriteCollection(entities.CollectionCheckouts, checkouts.Records); err != nil {
		return nil, err
	}

	return &Result{
		Biblios:   biblios,
		Patrons:   patrons,
		Holdings:  holdings,
		Checkouts: checkouts,
	}, nil
}

// registry tracks the source ids seen by one stage.
type registry struct {
	entity string
	seen   map[string]int
}

func newRegistry(entity string) *registry {
	return &registry{entity: entity, seen: make(map[string]int)}
}

// claim records sourceID at position pos, failing on a repeat.
func (r *registry) claim(sourceID string, pos int) error {
	if _, dup := r.seen[sourceID]; dup {
		return &DuplicateIDError{Entity: r.entity, SourceID: sourceID}
	}
	r.seen[sourceID] = pos
	return nil
}

func (r *registry) lookup(sourceID string) (int, bool) {
	pos, ok := r.seen[sourceID]
	return pos, ok
}

// mint creates the external id for a record.
func (x *Extractor) mint(entity, prefix, sourceID string) (string, error) {
	id, err := x.ids.Mint(prefix, sourceID)
	if err != nil {
		return "", fmt.Errorf("%s %q: %w", entity, sourceID, err)
	}
	return id, nil
}

// instant converts an optional timestamp attribute to UTC.
func (x *Extractor) instant(entity, sourceID string, n *xmlquery.Node, attrs ...string) (*string, error) {
	for _, attr := range attrs {
		raw, ok := apollo.Attr(n, attr)
		if !ok {
			continue
		}
		v, err := x.clock.OptToUTC(raw, true)
		if err != nil {
			return nil, &InvalidFieldError{Entity: entity, SourceID: sourceID, Field: attr, Err: err}
		}
		return v, nil
	}
	return nil, nil
}

type stamp struct {
	attr string
	dst  **string
}

// timestamps converts several optional timestamp attributes in order.
func (x *Extractor) timestamps(entity, sourceID string, n *xmlquery.Node, stamps ...stamp) error {
	for _, s := range stamps {
		v, err := x.instant(entity, sourceID, n, s.attr)
		if err != nil {
			return err
		}
		*s.dst = v
	}
	return nil
}

// membershipTokens returns the text of the membership children of n.
func membershipTokens(n *xmlquery.Node) []string {
	var tokens []string
	for _, m := range apollo.Children(n, "membership") {
		tokens = append(tokens, apollo.Text(m))
	}
	return tokens
}

type discard struct{}

func (discard) WriteCollection(string, any) error { return nil }
