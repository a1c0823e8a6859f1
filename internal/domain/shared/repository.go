package shared

// Page is an offset/limit window over a listing
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize is used when a caller asks for no limit
const DefaultPageSize = 50

// MaxPageSize caps a single listing
const MaxPageSize = 500

// Normalize clamps the page into valid bounds
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
