package marc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
)

func data(tag string, subfields ...string) Field {
	f := Field{Tag: tag}
	for i := 0; i+1 < len(subfields); i += 2 {
		f.Subfields = append(f.Subfields, Subfield{Code: subfields[i], Value: subfields[i+1]})
	}
	return f
}

func control(tag, value string) Field {
	return Field{Tag: tag, Control: true, Value: value}
}

func TestDecode_FullRecord(t *testing.T) {
	attrs := Decode([]Field{
		control("001", "ocm12345"),
		control("003", "OCoLC"),
		data("020", "a", "9780743273565", "c", "$15.00"),
		data("040", "a", "DLC", "d", "MaLiP"),
		data("100", "a", "Fitzgerald, F. Scott", "d", "1896-1940."),
		data("245", "a", "The Great", "b", "Gatsby."),
		data("264", "a", "New York :", "c", "©2004."),
		data("300", "a", "180 p. ;", "c", "21 cm."),
	})

	require.NotNil(t, attrs.ControlNumber)
	assert.Equal(t, "ocm12345", *attrs.ControlNumber)
	assert.Equal(t, "OCoLC", *attrs.ControlNumberIdentifier)
	assert.Equal(t, "9780743273565", *attrs.ISBN)
	assert.InDelta(t, 15.0, *attrs.Price, 0.0001)
	assert.Equal(t, "MaLiP", *attrs.CatalogingSource)
	assert.Equal(t, "Fitzgerald, F. Scott 1896-1940.", *attrs.Author)
	assert.Equal(t, "The Great Gatsby", attrs.Title)
	assert.Equal(t, "New York :", *attrs.Publication)
	assert.Equal(t, 2004, *attrs.Copyright)
	assert.Equal(t, 180, *attrs.NumPages)
}

func TestDecode_EmptyRecord(t *testing.T) {
	attrs := Decode(nil)

	assert.Equal(t, DefaultTitle, attrs.Title)
	assert.Nil(t, attrs.ControlNumber)
	assert.Nil(t, attrs.ISBN)
	assert.Nil(t, attrs.Price)
	assert.Nil(t, attrs.Author)
	assert.Nil(t, attrs.Copyright)
	assert.Nil(t, attrs.NumPages)
}

func TestDecode_RepeatedFields(t *testing.T) {
	attrs := Decode([]Field{
		data("100", "a", "Smith, Jane"),
		data("110", "a", "Acme Corp."),
		data("245", "a", "Part one."),
		data("245", "a", "Part two.."),
		data("020", "a", "111"),
		data("020", "a", "222"),
	})

	assert.Equal(t, "Smith, Jane Acme Corp.", *attrs.Author, "1XX fields concatenate in order")
	assert.Equal(t, "Part one. Part two.", attrs.Title, "only one trailing period is stripped")
	assert.Equal(t, "222", *attrs.ISBN, "single-value slots keep the last value")
}

func TestDecode_DroppedValues(t *testing.T) {
	attrs := Decode([]Field{
		data("264", "c", "n.d."),
		data("300", "a", "1500 p."),
		data("020", "c", "price on request"),
	})

	assert.Nil(t, attrs.Copyright, "non-numeric copyright is absent, not zero")
	assert.Nil(t, attrs.NumPages, "implausible page count is dropped")
	assert.Nil(t, attrs.Price)
}

func TestNormalizeTitle(t *testing.T) {
	title := "The Great Gatsby."
	assert.Equal(t, "The Great Gatsby", NormalizeTitle(&title))

	plain := "Dune"
	assert.Equal(t, "Dune", NormalizeTitle(&plain))

	assert.Equal(t, "No Title", NormalizeTitle(nil))
}

func TestParsePages(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"250 p.", 250, true},
		{"1500 p.", 0, false},
		{"xii, 250 p.", 250, true},
		{"999 p.", 999, true},
		{"1000 p.", 0, false},
		{"0 p.", 0, false},
		{"1 v.", 1, true},
		{"unpaged", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePages(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCopyright(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"©2015.", 2015, true},
		{"c1998, 2003", 1998, true},
		{"[2001?]", 2001, true},
		{"19", 19, true},
		{"", 0, false},
		{"n.d.", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseCopyright(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"$12.95", 12.95, true},
		{"12.95 (pbk.)", 12.95, true},
		{"£7", 7, true},
		{"$.99", 0.99, true},
		{"free", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePrice(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestDecodeNode(t *testing.T) {
	doc, err := apollo.Load(strings.NewReader(`<apollo xmlns:marc="`+Namespace+`">
	<biblio id="b1">
	  <marc:record>
	    <marc:leader>00000nam a2200000 a 4500</marc:leader>
	    <marc:controlfield tag="001">42</marc:controlfield>
	    <marc:datafield tag="245" ind1="1" ind2="0">
	      <marc:subfield code="a">Moby Dick</marc:subfield>
	      <marc:subfield code="c">Herman Melville.</marc:subfield>
	    </marc:datafield>
	    <marc:datafield tag="300" ind1=" " ind2=" ">
	      <marc:subfield code="a">635 p.</marc:subfield>
	    </marc:datafield>
	  </marc:record>
	</biblio>
	</apollo>`), apollo.LoadOptions{})
	require.NoError(t, err)

	biblio := doc.Biblios()[0]
	fields := FieldsOf(biblio)
	require.Len(t, fields, 3)
	assert.True(t, fields[0].Control)
	assert.Equal(t, "245", fields[1].Tag)
	require.Len(t, fields[1].Subfields, 2)

	attrs := DecodeNode(biblio)
	assert.Equal(t, "42", *attrs.ControlNumber)
	assert.Equal(t, "Moby Dick Herman Melville", attrs.Title)
	assert.Equal(t, 635, *attrs.NumPages)
}
