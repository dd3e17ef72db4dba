package models

import "math"

// Listing is one real-estate record read from the listings view.
// Numeric fields are nil when the backend value is NULL or not numeric.
type Listing struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Rooms       *int     `json:"rooms"`
	Price       *float64 `json:"price"`
	SizeM2      *float64 `json:"size_m2"`
	PricePerM2  *float64 `json:"price_per_m2"` // nil when size is NULL or not positive
}

// AggregateSummary holds the metrics shown above the listings table.
// Averages are 0 when no row contributes a value.
type AggregateSummary struct {
	ListingCount  int64   `json:"listing_count"`
	AvgPrice      float64 `json:"avg_price"`
	AvgPricePerM2 float64 `json:"avg_price_per_m2"`
}

// Empty reports whether no listing matched.
func (s AggregateSummary) Empty() bool {
	return s.ListingCount == 0
}

// Bounds is the observed range of every filter dimension across the whole,
// unfiltered view. NoData is the sentinel for an empty view.
type Bounds struct {
	NoData    bool    `json:"no_data"`
	TotalRows int64   `json:"total_rows"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	MinSize   float64 `json:"min_size"`
	MaxSize   float64 `json:"max_size"`
	MinRooms  int     `json:"min_rooms"`
	MaxRooms  int     `json:"max_rooms"`
	Rooms     []int   `json:"rooms"` // distinct non-null room counts, ascending
}

// NoDataBounds returns the sentinel bounds for an empty view.
func NoDataBounds() *Bounds {
	return &Bounds{NoData: true, Rooms: []int{}}
}

// PriceRange returns slider limits for the price control. A degenerate range
// is widened by one so the control stays usable.
func (b Bounds) PriceRange() (lo, hi float64) {
	lo, hi = math.Floor(b.MinPrice), math.Ceil(b.MaxPrice)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// PriceStep is the slider step for the price control.
func (b Bounds) PriceStep() float64 {
	lo, hi := b.PriceRange()
	return math.Max(1000, math.Floor((hi-lo)/100))
}

// SizeRange returns slider limits for the size control.
func (b Bounds) SizeRange() (lo, hi float64) {
	lo, hi = b.MinSize, b.MaxSize
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// SizeStep is the slider step for the size control.
func (b Bounds) SizeStep() float64 {
	lo, hi := b.SizeRange()
	return math.Max(1, (hi-lo)/50)
}
