package extract

import (
	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/localtime"
)

// Checkouts is the finished checkout stage.
type Checkouts struct {
	Records []entities.Checkout

	// Many checkouts in real exports are not linked to a patron or holding;
	// these are counted, not reported.
	UnlinkedPatrons  int
	UnlinkedHoldings int
	UnresolvedTokens int
}

// ExtractCheckouts builds checkouts, embedding the patron and holding when
// their references resolve. Checkouts keep their source id.
func (x *Extractor) ExtractCheckouts(nodes []*xmlquery.Node, patrons *Patrons, holdings *Holdings) (*Checkouts, error) {
	out := &Checkouts{
		Records: make([]entities.Checkout, 0, len(nodes)),
	}
	seen := newRegistry("checkout")

	for _, n := range nodes {
		sourceID := apollo.AttrValue(n, "id")
		if err := seen.claim(sourceID, len(out.Records)); err != nil {
			return nil, err
		}

		c := entities.Checkout{
			ID:            sourceID,
			Type:          apollo.AttrValue(n, "type"),
			Status:        apollo.AttrValue(n, "status"),
			RenewalsCount: len(apollo.Children(n, "renewals", "renewal")),
		}

		rawOut, ok := apollo.Attr(n, "out")
		if !ok {
			return nil, &MissingFieldError{Entity: "checkout", SourceID: sourceID, Field: "out"}
		}
		if err := x.localInstant(sourceID, "out", rawOut, &c.Out, &c.OutDayOfWeek); err != nil {
			return nil, err
		}

		if rawDue, ok := apollo.Attr(n, "due"); ok {
			var due, weekday string
			if err := x.localInstant(sourceID, "due", rawDue, &due, &weekday); err != nil {
				return nil, err
			}
			c.Due, c.DueDayOfWeek = &due, &weekday
		}

		var err error
		if c.Returned, err = x.instant("checkout", sourceID, n, "returned"); err != nil {
			return nil, err
		}

		_, c.Reserved = apollo.Attr(n, "reserveId")

		class := x.classifier.Classify(x.tables, membershipTokens(n))
		c.Membership = class.Memberships
		c.Category = class.Categories
		c.IsDVD = class.IsDVD
		out.UnresolvedTokens += class.Unresolved

		if patron, ok := patrons.Lookup(apollo.AttrValue(n, "patron")); ok {
			c.Patron = &patron
		} else {
			out.UnlinkedPatrons++
		}
		if holding, ok := holdings.Lookup(apollo.AttrValue(n, "holding")); ok {
			c.Holding = &holding
		} else {
			out.UnlinkedHoldings++
		}

		out.Records = append(out.Records, c)
	}

	return out, nil
}

// localInstant converts raw to UTC and records the weekday of the local date.
func (x *Extractor) localInstant(sourceID, field, raw string, instant, weekday *string) error {
	utc, err := x.clock.ToUTC(raw)
	if err != nil {
		return &InvalidFieldError{Entity: "checkout", SourceID: sourceID, Field: field, Err: err}
	}
	day, err := localtime.WeekdayName(raw)
	if err != nil {
		return &InvalidFieldError{Entity: "checkout", SourceID: sourceID, Field: field, Err: err}
	}
	*instant, *weekday = utc, day
	return nil
}
