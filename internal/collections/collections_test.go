package collections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/apollo-indexer/internal/entities"
)

func TestStore_WriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store, err := NewStore(dir)
	require.NoError(t, err)

	title := "No Title"
	pages := 250
	biblios := []entities.Biblio{
		{ID: "Babcdef01", Title: title, NumPages: &pages},
		{ID: "Babcdef02", Title: "Dune & Sons"},
	}
	require.NoError(t, store.WriteCollection(entities.CollectionBiblios, biblios))

	raw, err := os.ReadFile(filepath.Join(dir, "biblios.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"num_pages":250`)
	assert.Contains(t, string(raw), `Dune & Sons`, "HTML characters are not escaped")
	assert.NotContains(t, string(raw), `"isbn"`, "absent attributes are omitted")

	docs, err := store.Read(entities.CollectionBiblios)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	var decoded []entities.Biblio
	require.NoError(t, store.ReadInto(entities.CollectionBiblios, &decoded))
	assert.Equal(t, biblios, decoded)
}

func TestStore_EmptyCollection(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteCollection(entities.CollectionFines, []entities.Fine{}))

	raw, err := os.ReadFile(store.Path(entities.CollectionFines))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))

	docs, err := store.Read(entities.CollectionFines)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_ReplacesExistingFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteCollection("patrons", []entities.Patron{{ID: "P1"}, {ID: "P2"}}))
	require.NoError(t, store.WriteCollection("patrons", []entities.Patron{{ID: "P3"}}))

	docs, err := store.Read("patrons")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestStore_ReadErrors(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("missing")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(store.Path("broken"), []byte("{not json"), 0644))
	_, err = store.Read("broken")
	assert.Error(t, err)
}
