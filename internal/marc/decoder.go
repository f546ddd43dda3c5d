// Package marc decodes the MARCXML records embedded in export biblios into the
// flat attributes that get indexed.
//
// Only the tags the index needs are read:
//
//	001, 003   control number, control number identifier
//	020 $a $c  ISBN, price
//	040 $d     cataloging source
//	1XX        author (all subfields)
//	245        title (all subfields)
//	264 $a $c  publication place, copyright year
//	300 $a     page count
package marc

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultTitle is used for records without a 245 field.
const DefaultTitle = "No Title"

// Plausible page counts; anything else is scanning noise.
const (
	minPages = 1
	maxPages = 1000
)

var (
	nonDigits    = regexp.MustCompile(`[^0-9]`)
	leadingPrice = regexp.MustCompile(`^(\d+(?:\.\d*)?|\.\d+)`)
)

// Subfield is one coded value inside a data field.
type Subfield struct {
	Code  string
	Value string
}

// Field is a control field (Value set) or a data field (Subfields set).
type Field struct {
	Tag       string
	Control   bool
	Value     string
	Subfields []Subfield
}

// Attributes are the decoded values. Nil means the record did not carry it.
type Attributes struct {
	ControlNumber           *string
	ControlNumberIdentifier *string
	ISBN                    *string
	Price                   *float64
	CatalogingSource        *string
	Author                  *string
	Title                   string
	Publication             *string
	Copyright               *int
	NumPages                *int
}

// Decode reads fields in document order. Repeatable blocks (author, title)
// accumulate across subfields and fields; single-value slots keep the last
// value seen.
func Decode(fields []Field) Attributes {
	var (
		attrs Attributes
		title *string
	)

	for _, f := range fields {
		if f.Control {
			switch f.Tag {
			case "001":
				attrs.ControlNumber = strPtr(f.Value)
			case "003":
				attrs.ControlNumberIdentifier = strPtr(f.Value)
			}
			continue
		}

		switch {
		case f.Tag == "020":
			for _, sf := range f.Subfields {
				switch sf.Code {
				case "a":
					attrs.ISBN = strPtr(sf.Value)
				case "c":
					if price, ok := ParsePrice(sf.Value); ok {
						attrs.Price = &price
					}
				}
			}
		case f.Tag == "040":
			for _, sf := range f.Subfields {
				if sf.Code == "d" {
					attrs.CatalogingSource = strPtr(sf.Value)
				}
			}
		case strings.HasPrefix(f.Tag, "1"):
			for _, sf := range f.Subfields {
				attrs.Author = appendWord(attrs.Author, sf.Value)
			}
		case f.Tag == "245":
			for _, sf := range f.Subfields {
				title = appendWord(title, sf.Value)
			}
		case f.Tag == "264":
			for _, sf := range f.Subfields {
				switch sf.Code {
				case "a":
					attrs.Publication = strPtr(sf.Value)
				case "c":
					if year, ok := ParseCopyright(sf.Value); ok {
						attrs.Copyright = &year
					}
				}
			}
		case f.Tag == "300":
			for _, sf := range f.Subfields {
				if sf.Code == "a" {
					if pages, ok := ParsePages(sf.Value); ok {
						attrs.NumPages = &pages
					}
				}
			}
		}
	}

	attrs.Title = NormalizeTitle(title)
	return attrs
}

// NormalizeTitle strips one trailing period, or returns DefaultTitle when the
// record had no title.
func NormalizeTitle(title *string) string {
	if title == nil {
		return DefaultTitle
	}
	return strings.TrimSuffix(*title, ".")
}

// ParsePrice strips a leading currency symbol and reads the leading decimal:
// "$12.95 (pbk.)" -> 12.95.
func ParsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})
	m := leadingPrice.FindString(s)
	if m == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// ParseCopyright keeps the first four digits of raw: "©2015." -> 2015.
func ParseCopyright(raw string) (int, bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) > 4 {
		digits = digits[:4]
	}
	if digits == "" {
		return 0, false
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ParsePages concatenates every digit in raw and accepts the number only when
// it is a plausible page count: "250 p." -> 250, "1500 p." -> rejected.
func ParsePages(raw string) (int, bool) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, false
	}
	pages, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if pages < minPages || pages >= maxPages {
		return 0, false
	}
	return pages, true
}

func appendWord(acc *string, word string) *string {
	if acc == nil {
		return strPtr(word)
	}
	joined := *acc + " " + word
	return &joined
}

func strPtr(s string) *string {
	return &s
}
