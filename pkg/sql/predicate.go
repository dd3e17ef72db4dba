package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

// Output column names of the listing source. Predicates and the outer
// SELECTs refer to these, never to the physical view columns.
const (
	ColName        = "name"
	ColURL         = "url"
	ColDescription = "description"
	ColRooms       = "rooms"
	ColPrice       = "price"
	ColSize        = "size_m2"
	ColPricePerM2  = "price_per_m2"
)

// BuildPredicate turns a filter into a WHERE clause body and its parameters.
//
// Inverted bounds are clamped first (see models.FilterState.Clamped). Each
// set bound becomes "col >= ?" or "col <= ?", in the order rooms, price,
// size; a non-empty room set adds "rooms IN (...)". Parameter order follows
// placeholder order. An empty filter yields an empty clause and no params.
// Non-finite bounds are rejected.
//
// All parameters are float64 so every backend compares them against the
// coerced numeric columns without an implicit integer cast.
func BuildPredicate(d Dialect, filter models.FilterState) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	f := filter.Clamped()

	var (
		conditions []string
		params     []any
	)
	add := func(col, op string, v float64) {
		params = append(params, v)
		conditions = append(conditions, fmt.Sprintf("%s %s %s", col, op, d.Placeholder(len(params))))
	}

	if f.MinRooms != nil {
		add(ColRooms, ">=", float64(*f.MinRooms))
	}
	if f.MaxRooms != nil {
		add(ColRooms, "<=", float64(*f.MaxRooms))
	}
	if f.MinPrice != nil {
		add(ColPrice, ">=", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(ColPrice, "<=", *f.MaxPrice)
	}
	if f.MinSize != nil {
		add(ColSize, ">=", *f.MinSize)
	}
	if f.MaxSize != nil {
		add(ColSize, "<=", *f.MaxSize)
	}

	if len(f.Rooms) > 0 {
		markers := make([]string, len(f.Rooms))
		for i, r := range f.Rooms {
			params = append(params, float64(r))
			markers[i] = d.Placeholder(len(params))
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", ColRooms, strings.Join(markers, ", ")))
	}

	return strings.Join(conditions, " AND "), params, nil
}
