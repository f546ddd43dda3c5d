package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/ids"
)

// Patrons is the finished patron stage. Addresses, fines and reserves are
// flattened into their own collections, each pointing back at its patron.
type Patrons struct {
	Records   []entities.Patron
	Addresses []entities.Address
	Fines     []entities.Fine
	Reserves  []entities.Reserve
	index     *registry
}

// Lookup returns the patron extracted from sourceID.
func (p *Patrons) Lookup(sourceID string) (entities.Patron, bool) {
	pos, ok := p.index.lookup(sourceID)
	if !ok {
		return entities.Patron{}, false
	}
	return p.Records[pos], true
}

// ExtractPatrons builds patrons and their sub-records. Reserves must point at
// a biblio from biblios.
func (x *Extractor) ExtractPatrons(nodes []*xmlquery.Node, biblios *Biblios) (*Patrons, error) {
	out := &Patrons{
		Records:   make([]entities.Patron, 0, len(nodes)),
		Addresses: []entities.Address{},
		Fines:     []entities.Fine{},
		Reserves:  []entities.Reserve{},
		index:     newRegistry("patron"),
	}

	for _, n := range nodes {
		sourceID := apollo.AttrValue(n, "id")
		if err := out.index.claim(sourceID, len(out.Records)); err != nil {
			return nil, err
		}

		patron, err := x.patron(n, sourceID)
		if err != nil {
			return nil, err
		}

		for _, a := range apollo.Children(n, "addresses", "address") {
			out.Addresses = append(out.Addresses, address(a, patron))
			patron.AddressCount++
		}

		for _, ph := range apollo.Children(n, "phones", "phone") {
			patron.Phones = append(patron.Phones, apollo.AttrValue(ph, "type"))
		}
		patron.PhonesCount = len(patron.Phones)

		for _, f := range apollo.Children(n, "fines", "fine") {
			fine, err := x.fine(f, sourceID, patron)
			if err != nil {
				return nil, err
			}
			out.Fines = append(out.Fines, fine)
			patron.FinesCount++
		}

		for _, r := range apollo.Children(n, "reserves", "reserve") {
			reserve, err := x.reserve(r, sourceID, patron, biblios)
			if err != nil {
				return nil, err
			}
			out.Reserves = append(out.Reserves, reserve)
			patron.ReservesCount++
		}

		out.Records = append(out.Records, patron)
	}

	return out, nil
}

func (x *Extractor) patron(n *xmlquery.Node, sourceID string) (entities.Patron, error) {
	id, err := x.mint("patron", ids.PrefixPatron, sourceID)
	if err != nil {
		return entities.Patron{}, err
	}

	p := entities.Patron{
		ID:         id,
		UsageCount: apollo.AttrInt(n, "usageCount"),
		Phones:     []string{},
	}
	if err := x.timestamps("patron", sourceID, n,
		stamp{"edited", &p.Edited},
		stamp{"expiration", &p.Expiration},
		stamp{"created", &p.Created},
	); err != nil {
		return entities.Patron{}, err
	}
	if p.LatestActivity, err = x.instant("patron", sourceID, n, "latestActivity", "latest_activity"); err != nil {
		return entities.Patron{}, err
	}

	// A patron carries one membership; when repeated the last one wins.
	for _, token := range membershipTokens(n) {
		p.Membership = nil
		if name, ok := x.tables.MembershipName(strings.TrimSpace(token)); ok {
			p.Membership = &name
		}
	}

	return p, nil
}

func address(n *xmlquery.Node, patron entities.Patron) entities.Address {
	a := entities.Address{
		State:      apollo.AttrValue(n, "countryDivision"),
		County:     apollo.AttrValue(n, "locality"),
		Postal:     apollo.AttrValue(n, "postalCode"),
		Country:    apollo.AttrValue(n, "country"),
		Patron:     patron.ID,
		Membership: patron.Membership,
		Timestamp:  patron.Created,
	}
	if mailing, ok := apollo.AttrBool(n, "mailing"); ok {
		a.Mailing = &mailing
	}
	return a
}

func (x *Extractor) fine(n *xmlquery.Node, patronSourceID string, patron entities.Patron) (entities.Fine, error) {
	f := entities.Fine{
		AmountCents:     apollo.AttrInt(n, "amountCents"),
		AmountPaidCents: apollo.AttrInt(n, "amountPaidCents"),
		Status:          apollo.AttrValue(n, "status"),
		Patron:          patron.ID,
		Membership:      patron.Membership,
	}
	if continuation, ok := apollo.AttrBool(n, "continuation"); ok {
		f.Continuation = &continuation
	}

	var err error
	if f.Returned, err = x.instant("fine of patron", patronSourceID, n, "returned"); err != nil {
		return entities.Fine{}, err
	}
	return f, nil
}

func (x *Extractor) reserve(n *xmlquery.Node, patronSourceID string, patron entities.Patron, biblios *Biblios) (entities.Reserve, error) {
	r := entities.Reserve{
		Status:     apollo.AttrValue(n, "status"),
		Patron:     patron.ID,
		Membership: patron.Membership,
	}
	if err := x.timestamps("reserve of patron", patronSourceID, n,
		stamp{"placed", &r.Placed},
		stamp{"resolved", &r.Resolved},
	); err != nil {
		return entities.Reserve{}, err
	}

	biblioRef := apollo.AttrValue(n, "biblio")
	biblio, ok := biblios.Lookup(biblioRef)
	if !ok {
		return entities.Reserve{}, &UnresolvedReferenceError{
			Entity:   "reserve of patron",
			SourceID: patronSourceID,
			Ref:      "biblio",
			RefID:    biblioRef,
		}
	}
	r.Biblio = biblio.ID

	return r, nil
}
