// Package reference builds the lookup tables that resolve membership and
// category ids carried by patrons, holdings and checkouts.
package reference

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
)

// Tables maps membership ids to display names and holding-category ids to
// category names. Built once per run and read-only afterwards.
type Tables struct {
	memberships map[string]string
	categories  map[string]string
}

// Build reads the patronMembership and holdingMembership nodes of doc.
func Build(doc *apollo.Document) *Tables {
	t := &Tables{
		memberships: make(map[string]string),
		categories:  make(map[string]string),
	}
	for _, n := range doc.PatronMemberships() {
		t.memberships[apollo.AttrValue(n, "id")] = TitleCase(apollo.AttrValue(n, "name"))
	}
	for _, n := range doc.HoldingMemberships() {
		t.categories[apollo.AttrValue(n, "id")] = apollo.AttrValue(n, "name")
	}
	return t
}

// NewTables builds tables from plain maps. Membership names are title-cased.
func NewTables(memberships, categories map[string]string) *Tables {
	t := &Tables{
		memberships: make(map[string]string, len(memberships)),
		categories:  make(map[string]string, len(categories)),
	}
	for id, name := range memberships {
		t.memberships[id] = TitleCase(name)
	}
	for id, name := range categories {
		t.categories[id] = name
	}
	return t
}

// MembershipName resolves a patron-membership id.
func (t *Tables) MembershipName(id string) (string, bool) {
	name, ok := t.memberships[id]
	return name, ok
}

// CategoryName resolves a holding-category id.
func (t *Tables) CategoryName(id string) (string, bool) {
	name, ok := t.categories[id]
	return name, ok
}

// Len reports the number of memberships and categories.
func (t *Tables) Len() (memberships, categories int) {
	return len(t.memberships), len(t.categories)
}

// TitleCase splits on whitespace and capitalises each word, lower-casing the
// rest of it: "JANE smith" -> "Jane Smith".
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
