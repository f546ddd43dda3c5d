package entities

// Collection names. Each is written to <data dir>/<name>.json and loaded
// into an index of the same name.
const (
	CollectionBiblios   = "biblios"
	CollectionPatrons   = "patrons"
	CollectionAddresses = "addresses"
	CollectionFines     = "fines"
	CollectionReserves  = "reserves"
	CollectionHoldings  = "holdings"
	CollectionCheckouts = "checkouts"
)

// Collections lists every collection in extraction order.
var Collections = []string{
	CollectionBiblios,
	CollectionPatrons,
	CollectionAddresses,
	CollectionFines,
	CollectionReserves,
	CollectionHoldings,
	CollectionCheckouts,
}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
