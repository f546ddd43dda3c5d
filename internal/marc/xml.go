package marc

import (
	"github.com/antchfx/xmlquery"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
)

// Namespace is the MARCXML namespace used inside export biblios. Elements
// are matched on local name, so the prefix bound to it does not matter.
const Namespace = "http://www.loc.gov/MARC21/slim"

// FieldsOf collects the control and data fields of every record embedded in
// a biblio node, in document order.
func FieldsOf(biblio *xmlquery.Node) []Field {
	var fields []Field
	for _, record := range apollo.Children(biblio, "record") {
		for c := record.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch c.Data {
			case "controlfield":
				fields = append(fields, Field{
					Tag:     apollo.AttrValue(c, "tag"),
					Control: true,
					Value:   apollo.Text(c),
				})
			case "datafield":
				f := Field{Tag: apollo.AttrValue(c, "tag")}
				for _, sf := range apollo.Children(c, "subfield") {
					f.Subfields = append(f.Subfields, Subfield{
						Code:  apollo.AttrValue(sf, "code"),
						Value: apollo.Text(sf),
					})
				}
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// DecodeNode decodes the MARC record embedded in a biblio node.
func DecodeNode(biblio *xmlquery.Node) Attributes {
	return Decode(FieldsOf(biblio))
}
