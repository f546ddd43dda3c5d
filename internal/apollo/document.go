// Package apollo reads library-management exports.
//
// An export is a single XML document holding reference tables (patronMembership,
// holdingMembership) and the entity nodes (biblio, patron, holding, checkout).
// Biblios embed MARCXML records. The whole document is parsed into memory once;
// extraction then walks the tree in document order.
package apollo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html/charset"
)

// Element names of the export schema.
const (
	ElementPatronMembership  = "patronMembership"
	ElementHoldingMembership = "holdingMembership"
	ElementBiblio            = "biblio"
	ElementPatron            = "patron"
	ElementHolding           = "holding"
	ElementCheckout          = "checkout"
)

// Document is a fully parsed export.
type Document struct {
	root *xmlquery.Node

	// Diagnostics lists non-fatal structural problems noticed while loading.
	Diagnostics []string
}

// LoadOptions tune the XML decoder.
type LoadOptions struct {
	// Strict rejects malformed markup. The default lenient mode recovers from
	// unknown entities and unclosed tags the way exports in the wild need.
	Strict bool
}

// Load parses an export from r. Declared non-UTF-8 encodings such as
// ISO-8859-1 and windows-1252 are transcoded. In lenient mode markup the
// strict decoder rejects is reported in Diagnostics.
func Load(r io.Reader, opts LoadOptions) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	root, err := xmlquery.ParseWithOptions(bytes.NewReader(data), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:        opts.Strict,
			CharsetReader: charset.NewReaderLabel,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}

	doc := &Document{root: root}
	if !opts.Strict {
		if err := scanStrict(data); err != nil {
			doc.Diagnostics = append(doc.Diagnostics, "recovered from malformed XML: "+err.Error())
		}
	}
	doc.checkStructure()
	return doc, nil
}

// scanStrict runs the strict tokenizer over data and returns its first error.
func scanStrict(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		_, err := dec.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// LoadFile opens and parses the export at path.
func LoadFile(path string, opts LoadOptions) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	return Load(f, opts)
}

// PatronMemberships returns every patronMembership node in document order.
func (d *Document) PatronMemberships() []*xmlquery.Node {
	return d.find(ElementPatronMembership)
}

// HoldingMemberships returns every holdingMembership node in document order.
func (d *Document) HoldingMemberships() []*xmlquery.Node {
	return d.find(ElementHoldingMembership)
}

func (d *Document) Biblios() []*xmlquery.Node {
	return d.find(ElementBiblio)
}

func (d *Document) Patrons() []*xmlquery.Node {
	return d.find(ElementPatron)
}

func (d *Document) Holdings() []*xmlquery.Node {
	return d.find(ElementHolding)
}

func (d *Document) Checkouts() []*xmlquery.Node {
	return d.find(ElementCheckout)
}

func (d *Document) find(element string) []*xmlquery.Node {
	return xmlquery.Find(d.root, "//"+element)
}

// checkStructure records entity nodes without an id. Extraction still runs;
// such nodes share the empty source id and trip duplicate detection if
// there is more than one of a kind.
func (d *Document) checkStructure() {
	for _, element := range []string{ElementBiblio, ElementPatron, ElementHolding, ElementCheckout} {
		for _, n := range d.find(element) {
			if _, ok := Attr(n, "id"); !ok {
				d.Diagnostics = append(d.Diagnostics,
					fmt.Sprintf("%s element at position %d has no id attribute", element, position(n)))
			}
		}
	}
}

// position is the 1-based index of n among its element siblings.
func position(n *xmlquery.Node) int {
	pos := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == xmlquery.ElementNode {
			pos++
		}
	}
	return pos
}
