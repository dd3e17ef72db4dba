package sql

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestBuildPredicate(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		filter     models.FilterState
		wantClause string
		wantParams []any
	}{
		{
			name:       "empty filter",
			dialect:    DuckDB,
			filter:     models.FilterState{},
			wantClause: "",
			wantParams: nil,
		},
		{
			name:       "single lower bound",
			dialect:    DuckDB,
			filter:     models.FilterState{MinPrice: floatPtr(150000)},
			wantClause: "price >= ?",
			wantParams: []any{150000.0},
		},
		{
			name:    "rooms min and max treated like the other dimensions",
			dialect: DuckDB,
			filter: models.FilterState{
				MinRooms: intPtr(2), MaxRooms: intPtr(4),
				MaxPrice: floatPtr(300000),
				MinSize:  floatPtr(60),
			},
			wantClause: "rooms >= ? AND rooms <= ? AND price <= ? AND size_m2 >= ?",
			wantParams: []any{2.0, 4.0, 300000.0, 60.0},
		},
		{
			name:       "postgres numbers placeholders in order",
			dialect:    Postgres,
			filter:     models.FilterState{MinPrice: floatPtr(1), MaxPrice: floatPtr(2), MaxSize: floatPtr(3)},
			wantClause: "price >= $1 AND price <= $2 AND size_m2 <= $3",
			wantParams: []any{1.0, 2.0, 3.0},
		},
		{
			name:       "sql server placeholders",
			dialect:    SQLServer,
			filter:     models.FilterState{MinSize: floatPtr(40), MaxSize: floatPtr(90)},
			wantClause: "size_m2 >= @p1 AND size_m2 <= @p2",
			wantParams: []any{40.0, 90.0},
		},
		{
			name:       "room set becomes IN after range bounds",
			dialect:    Postgres,
			filter:     models.FilterState{MinPrice: floatPtr(100), Rooms: []int{3, 1, 3}},
			wantClause: "price >= $1 AND rooms IN ($2, $3)",
			wantParams: []any{100.0, 1.0, 3.0},
		},
		{
			name:       "inverted bounds are clamped",
			dialect:    DuckDB,
			filter:     models.FilterState{MinPrice: floatPtr(500), MaxPrice: floatPtr(200)},
			wantClause: "price >= ? AND price <= ?",
			wantParams: []any{200.0, 200.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, params, err := BuildPredicate(tt.dialect, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClause, clause)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestBuildPredicate_RejectsNonFinite(t *testing.T) {
	_, _, err := BuildPredicate(DuckDB, models.FilterState{MinPrice: floatPtr(math.NaN())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")

	_, _, err = BuildPredicate(DuckDB, models.FilterState{MaxSize: floatPtr(math.Inf(-1))})
	require.Error(t, err)
}

func TestBuildPredicate_ParamCountMatchesPlaceholders(t *testing.T) {
	f := models.FilterState{
		MinRooms: intPtr(1), MaxRooms: intPtr(5),
		MinPrice: floatPtr(1), MaxPrice: floatPtr(2),
		MinSize: floatPtr(3), MaxSize: floatPtr(4),
		Rooms: []int{1, 2, 3},
	}
	clause, params, err := BuildPredicate(DuckDB, f)
	require.NoError(t, err)

	placeholders := 0
	for _, r := range clause {
		if r == '?' {
			placeholders++
		}
	}
	assert.Equal(t, len(params), placeholders)
	assert.Len(t, params, 9)
}
