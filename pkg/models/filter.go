package models

import (
	"fmt"
	"math"
	"slices"
)

// FilterState is the set of user-selected bounds applied to the listings view.
// Every bound is optional and inclusive. Rooms, when non-empty, restricts the
// room count to the listed values in addition to MinRooms/MaxRooms.
type FilterState struct {
	MinRooms *int     `json:"min_rooms,omitempty"`
	MaxRooms *int     `json:"max_rooms,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinSize  *float64 `json:"min_size,omitempty"`
	MaxSize  *float64 `json:"max_size,omitempty"`
	Rooms    []int    `json:"rooms,omitempty"`
}

// IsEmpty reports whether no bound is set.
func (f FilterState) IsEmpty() bool {
	return f.MinRooms == nil && f.MaxRooms == nil &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinSize == nil && f.MaxSize == nil &&
		len(f.Rooms) == 0
}

// Validate rejects bounds that cannot be compared, such as NaN or infinities.
func (f FilterState) Validate() error {
	for name, v := range map[string]*float64{
		"min_price": f.MinPrice,
		"max_price": f.MaxPrice,
		"min_size":  f.MinSize,
		"max_size":  f.MaxSize,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}
	return nil
}

// Clamped returns a copy in which every inverted pair (min > max) has its min
// lowered to max. Rooms is returned sorted and deduplicated. The receiver is
// not modified.
func (f FilterState) Clamped() FilterState {
	out := FilterState{
		MinRooms: clampInt(f.MinRooms, f.MaxRooms),
		MaxRooms: copyPtr(f.MaxRooms),
		MinPrice: clampFloat(f.MinPrice, f.MaxPrice),
		MaxPrice: copyPtr(f.MaxPrice),
		MinSize:  clampFloat(f.MinSize, f.MaxSize),
		MaxSize:  copyPtr(f.MaxSize),
	}
	if len(f.Rooms) > 0 {
		rooms := slices.Clone(f.Rooms)
		slices.Sort(rooms)
		out.Rooms = slices.Compact(rooms)
	}
	return out
}

func clampInt(min, max *int) *int {
	if min == nil {
		return nil
	}
	v := *min
	if max != nil && v > *max {
		v = *max
	}
	return &v
}

func clampFloat(min, max *float64) *float64 {
	if min == nil {
		return nil
	}
	v := *min
	if max != nil && v > *max {
		v = *max
	}
	return &v
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
