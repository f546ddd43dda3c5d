package apollo

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Attr returns the value of the attribute with the given local name.
func Attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the attribute value, or "" when absent.
func AttrValue(n *xmlquery.Node, name string) string {
	v, _ := Attr(n, name)
	return v
}

// AttrInt parses an integer attribute. Absent or malformed values yield 0.
func AttrInt(n *xmlquery.Node, name string) int {
	v, ok := Attr(n, name)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return i
}

// AttrBool parses a boolean attribute. The second result is false when the
// attribute is absent or not a recognised boolean literal.
func AttrBool(n *xmlquery.Node, name string) (bool, bool) {
	v, ok := Attr(n, name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

// Children walks a relative element path (e.g. "addresses", "address") and
// returns the matching elements in document order. Names match on local name
// so prefixed and default-namespace markup are treated alike.
func Children(n *xmlquery.Node, path ...string) []*xmlquery.Node {
	current := []*xmlquery.Node{n}
	for _, name := range path {
		var next []*xmlquery.Node
		for _, parent := range current {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == xmlquery.ElementNode && c.Data == name {
					next = append(next, c)
				}
			}
		}
		current = next
	}
	if len(path) == 0 {
		return nil
	}
	return current
}

// Text returns the text content of n.
func Text(n *xmlquery.Node) string {
	return n.InnerText()
}
