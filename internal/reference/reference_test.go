package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/apollo-indexer/internal/apollo"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JANE smith", "Jane Smith"},
		{"  adult   RESIDENT ", "Adult Resident"},
		{"", ""},
		{"élan vital", "Élan Vital"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleCase(tt.in))
		})
	}
}

func TestBuild(t *testing.T) {
	doc, err := apollo.Load(strings.NewReader(`<apollo>
		<patronMembership id="pm1" name="ADULT resident"/>
		<holdingMembership id="hm7" name="LARGE print"/>
	</apollo>`), apollo.LoadOptions{})
	require.NoError(t, err)

	tables := Build(doc)

	name, ok := tables.MembershipName("pm1")
	assert.True(t, ok)
	assert.Equal(t, "Adult Resident", name)

	name, ok = tables.CategoryName("hm7")
	assert.True(t, ok)
	assert.Equal(t, "LARGE print", name, "category names are kept verbatim")

	_, ok = tables.MembershipName("pm2")
	assert.False(t, ok)

	m, c := tables.Len()
	assert.Equal(t, 1, m)
	assert.Equal(t, 1, c)
}

func TestClassify(t *testing.T) {
	tables := NewTables(
		map[string]string{"pm1": "adult", "pm2": "CHILD"},
		map[string]string{"hm1": "Fiction", "hm50": "DVD", "hm51": "Housekeeping"},
	)
	classifier := DefaultClassifier()

	t.Run("resolves memberships and categories in order", func(t *testing.T) {
		got := classifier.Classify(tables, []string{"pm2", "hm1", "pm1"})
		assert.Equal(t, []string{"Child", "Adult"}, got.Memberships)
		assert.Equal(t, []string{"Fiction"}, got.Categories)
		assert.False(t, got.IsDVD)
	})

	t.Run("DVD sentinel sets flag only", func(t *testing.T) {
		got := classifier.Classify(tables, []string{"hm50"})
		assert.True(t, got.IsDVD)
		assert.Empty(t, got.Categories)
	})

	t.Run("ignored sentinel contributes nothing", func(t *testing.T) {
		got := classifier.Classify(tables, []string{"hm51"})
		assert.False(t, got.IsDVD)
		assert.Empty(t, got.Categories)
		assert.Empty(t, got.Memberships)
		assert.Zero(t, got.Unresolved)
	})

	t.Run("unresolved and foreign tokens are skipped", func(t *testing.T) {
		got := classifier.Classify(tables, []string{"pm9", "hm9", "zz1", " hm1 "})
		assert.Equal(t, []string{"Fiction"}, got.Categories)
		assert.Empty(t, got.Memberships)
		assert.Equal(t, 2, got.Unresolved)
	})

	t.Run("empty token list yields empty slices", func(t *testing.T) {
		got := classifier.Classify(tables, nil)
		assert.NotNil(t, got.Memberships)
		assert.NotNil(t, got.Categories)
	})
}
