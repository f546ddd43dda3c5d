package extract

import (
	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/ids"
)

// Holdings is the finished holding stage.
type Holdings struct {
	Records []entities.Holding

	// UnresolvedTokens counts membership tokens with no table entry.
	UnresolvedTokens int

	index *registry
}

// Lookup returns the holding extracted from sourceID.
func (h *Holdings) Lookup(sourceID string) (entities.Holding, bool) {
	pos, ok := h.index.lookup(sourceID)
	if !ok {
		return entities.Holding{}, false
	}
	return h.Records[pos], true
}

// ExtractHoldings builds holdings, embedding the biblio each one copies.
func (x *Extractor) ExtractHoldings(nodes []*xmlquery.Node, biblios *Biblios) (*Holdings, error) {
	out := &Holdings{
		Records: make([]entities.Holding, 0, len(nodes)),
		index:   newRegistry("holding"),
	}

	for _, n := range nodes {
		sourceID := apollo.AttrValue(n, "id")
		if err := out.index.claim(sourceID, len(out.Records)); err != nil {
			return nil, err
		}

		id, err := x.mint("holding", ids.PrefixHolding, sourceID)
		if err != nil {
			return nil, err
		}

		h := entities.Holding{
			ID:             id,
			DeletedType:    apollo.AttrValue(n, "deletedType"),
			UsageCount:     apollo.AttrInt(n, "usageCount"),
			Status:         apollo.AttrValue(n, "status"),
			Call:           apollo.AttrValue(n, "call"),
			Barcode:        apollo.AttrValue(n, "barcode"),
			PriceListCents: apollo.AttrInt(n, "priceListCents"),
			PriceCents:     apollo.AttrInt(n, "priceCents"),
		}
		if err := x.timestamps("holding", sourceID, n,
			stamp{"added", &h.Added},
			stamp{"edited", &h.Edited},
			stamp{"deleted", &h.Deleted},
		); err != nil {
			return nil, err
		}

		class := x.classifier.Classify(x.tables, membershipTokens(n))
		h.Membership = class.Memberships
		h.Category = class.Categories
		h.IsDVD = class.IsDVD
		out.UnresolvedTokens += class.Unresolved

		biblioRef := apollo.AttrValue(n, "biblio")
		biblio, ok := biblios.Lookup(biblioRef)
		if !ok {
			return nil, &UnresolvedReferenceError{
				Entity:   "holding",
				SourceID: sourceID,
				Ref:      "biblio",
				RefID:    biblioRef,
			}
		}
		h.Biblio = biblio

		out.Records = append(out.Records, h)
	}

	return out, nil
}
