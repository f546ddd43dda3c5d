package entities

// Output records are flat and storage-shaped: they are marshalled as-is into the
// JSON collections that get bulk loaded into the search index. Optional attributes
// are pointers so that absence is encoded by omitting the key.

// Biblio is a cataloged bibliographic work.
type Biblio struct {
	ID                      string   `json:"id"`
	Added                   *string  `json:"added,omitempty"`
	Edited                  *string  `json:"edited,omitempty"`
	Deleted                 *string  `json:"deleted,omitempty"`
	UsageCount              int      `json:"usage_count"`
	Status                  string   `json:"status,omitempty"`
	ControlNumber           *string  `json:"control_number,omitempty"`
	ControlNumberIdentifier *string  `json:"control_number_identifier,omitempty"`
	ISBN                    *string  `json:"isbn,omitempty"`
	Price                   *float64 `json:"price,omitempty"`
	CatalogingSource        *string  `json:"cataloging_source,omitempty"`
	Author                  *string  `json:"author,omitempty"`
	Title                   string   `json:"title"`
	Publication             *string  `json:"publication,omitempty"`
	Copyright               *int     `json:"copyright,omitempty"`
	NumPages                *int     `json:"num_pages,omitempty"`
}

// Patron is a library member account.
type Patron struct {
	ID             string   `json:"id"`
	UsageCount     int      `json:"usage_count"`
	Edited         *string  `json:"edited,omitempty"`
	Expiration     *string  `json:"expiration,omitempty"`
	LatestActivity *string  `json:"latest_activity,omitempty"`
	Created        *string  `json:"created,omitempty"`
	Membership     *string  `json:"membership,omitempty"`
	AddressCount   int      `json:"address_count"`
	Phones         []string `json:"phones"`
	PhonesCount    int      `json:"phones_count"`
	FinesCount     int      `json:"fines_count"`
	ReservesCount  int      `json:"reserves_count"`
}

// Address is one postal address of a patron.
type Address struct {
	Mailing    *bool   `json:"mailing,omitempty"`
	State      string  `json:"state,omitempty"`
	County     string  `json:"county,omitempty"`
	Postal     string  `json:"postal,omitempty"`
	Country    string  `json:"country,omitempty"`
	Patron     string  `json:"patron"`
	Membership *string `json:"membership,omitempty"`
	Timestamp  *string `json:"timestamp,omitempty"`
}

// Fine is a charge recorded against a patron.
type Fine struct {
	Continuation    *bool   `json:"continuation,omitempty"`
	AmountCents     int     `json:"amount_cents"`
	AmountPaidCents int     `json:"amount_paid_cents"`
	Status          string  `json:"status,omitempty"`
	Returned        *string `json:"returned,omitempty"`
	Patron          string  `json:"patron"`
	Membership      *string `json:"membership,omitempty"`
}

// Reserve is a hold placed by a patron on a biblio.
type Reserve struct {
	Status     string  `json:"status,omitempty"`
	Placed     *string `json:"placed,omitempty"`
	Resolved   *string `json:"resolved,omitempty"`
	Biblio     string  `json:"biblio"`
	Patron     string  `json:"patron"`
	Membership *string `json:"membership,omitempty"`
}

// Holding is a circulating copy. It embeds the full Biblio because the index has
// no join capability.
type Holding struct {
	ID             string   `json:"id"`
	DeletedType    string   `json:"deleted_type,omitempty"`
	UsageCount     int      `json:"usage_count"`
	Status         string   `json:"status,omitempty"`
	Call           string   `json:"call,omitempty"`
	Added          *string  `json:"added,omitempty"`
	Edited         *string  `json:"edited,omitempty"`
	Deleted        *string  `json:"deleted,omitempty"`
	Barcode        string   `json:"barcode,omitempty"`
	PriceListCents int      `json:"price_list_cents"`
	PriceCents     int      `json:"price_cents"`
	Membership     []string `json:"membership"`
	Category       []string `json:"category"`
	IsDVD          bool     `json:"is_dvd"`
	Biblio         Biblio   `json:"biblio"`
}

// Checkout is one circulation transaction. Patron and Holding are embedded when
// the source references resolve and omitted otherwise.
type Checkout struct {
	ID            string   `json:"id"`
	Type          string   `json:"type,omitempty"`
	Out           string   `json:"out"`
	OutDayOfWeek  string   `json:"out_day_of_week"`
	Due           *string  `json:"due,omitempty"`
	DueDayOfWeek  *string  `json:"due_day_of_week,omitempty"`
	Status        string   `json:"status,omitempty"`
	Returned      *string  `json:"returned,omitempty"`
	Reserved      bool     `json:"reserved,omitempty"`
	RenewalsCount int      `json:"renewals_count"`
	Membership    []string `json:"membership"`
	Category      []string `json:"category"`
	IsDVD         bool     `json:"is_dvd"`
	Patron        *Patron  `json:"patron,omitempty"`
	Holding       *Holding `json:"holding,omitempty"`
}
