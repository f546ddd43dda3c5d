package extract

import (
	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/ids"
	"github.com/mrlokans/apollo-indexer/internal/marc"
)

// Biblios is the finished biblio stage: records in document order plus the
// source-id lookup used by later stages.
type Biblios struct {
	Records []entities.Biblio
	index   *registry
}

// Lookup returns the biblio extracted from sourceID.
func (b *Biblios) Lookup(sourceID string) (entities.Biblio, bool) {
	pos, ok := b.index.lookup(sourceID)
	if !ok {
		return entities.Biblio{}, false
	}
	return b.Records[pos], true
}

// ExtractBiblios builds one Biblio per node.
func (x *Extractor) ExtractBiblios(nodes []*xmlquery.Node) (*Biblios, error) {
	out := &Biblios{
		Records: make([]entities.Biblio, 0, len(nodes)),
		index:   newRegistry("biblio"),
	}

	for _, n := range nodes {
		sourceID := apollo.AttrValue(n, "id")
		if err := out.index.claim(sourceID, len(out.Records)); err != nil {
			return nil, err
		}

		biblio, err := x.biblio(n, sourceID)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, biblio)
	}

	return out, nil
}

func (x *Extractor) biblio(n *xmlquery.Node, sourceID string) (entities.Biblio, error) {
	id, err := x.mint("biblio", ids.PrefixBiblio, sourceID)
	if err != nil {
		return entities.Biblio{}, err
	}

	b := entities.Biblio{
		ID:         id,
		UsageCount: apollo.AttrInt(n, "usageCount"),
		Status:     apollo.AttrValue(n, "status"),
	}
	if err := x.timestamps("biblio", sourceID, n,
		stamp{"added", &b.Added},
		stamp{"edited", &b.Edited},
		stamp{"deleted", &b.Deleted},
	); err != nil {
		return entities.Biblio{}, err
	}

	attrs := marc.DecodeNode(n)
	b.ControlNumber = attrs.ControlNumber
	b.ControlNumberIdentifier = attrs.ControlNumberIdentifier
	b.ISBN = attrs.ISBN
	b.Price = attrs.Price
	b.CatalogingSource = attrs.CatalogingSource
	b.Author = attrs.Author
	b.Title = attrs.Title
	b.Publication = attrs.Publication
	b.Copyright = attrs.Copyright
	b.NumPages = attrs.NumPages

	return b, nil
}
