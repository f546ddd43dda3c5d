package reference

import "strings"

const (
	DefaultPatronPrefix    = "pm"
	DefaultHoldingPrefix   = "hm"
	DefaultIgnoredCategory = "hm51"
	DefaultDVDCategory     = "hm50"
)

// Classifier sorts the membership tokens attached to holdings and checkouts.
//
// Tokens with the patron prefix resolve to membership names. Tokens with the
// holding prefix resolve to category names, except the ignored housekeeping
// category, which is dropped, and the DVD category, which only sets IsDVD.
type Classifier struct {
	PatronPrefix  string
	HoldingPrefix string
	Ignored       string
	DVD           string
}

// DefaultClassifier returns the classifier for the stock export layout.
func DefaultClassifier() Classifier {
	return Classifier{
		PatronPrefix:  DefaultPatronPrefix,
		HoldingPrefix: DefaultHoldingPrefix,
		Ignored:       DefaultIgnoredCategory,
		DVD:           DefaultDVDCategory,
	}
}

// Classification is the outcome of classifying one node's tokens.
type Classification struct {
	Memberships []string
	Categories  []string
	IsDVD       bool

	// Unresolved counts tokens whose id had no table entry.
	Unresolved int
}

// Classify resolves tokens against tables in order.
func (c Classifier) Classify(tables *Tables, tokens []string) Classification {
	result := Classification{
		Memberships: []string{},
		Categories:  []string{},
	}

	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(token, c.PatronPrefix):
			if name, ok := tables.MembershipName(token); ok {
				result.Memberships = append(result.Memberships, name)
			} else {
				result.Unresolved++
			}
		case strings.HasPrefix(token, c.HoldingPrefix):
			switch token {
			case c.Ignored:
			case c.DVD:
				result.IsDVD = true
			default:
				if name, ok := tables.CategoryName(token); ok {
					result.Categories = append(result.Categories, name)
				} else {
					result.Unresolved++
				}
			}
		}
	}

	return result
}
