package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

// Columns maps each listing field to a physical column of the view.
type Columns struct {
	Name        string
	URL         string
	Description string
	Rooms       string
	Price       string
	Size        string
}

// DefaultColumns is the column layout of the Casa Genova listings view.
func DefaultColumns() Columns {
	return Columns{
		Name:        "name",
		URL:         "url",
		Description: "description",
		Rooms:       "number_of_rooms",
		Price:       "price_value_eur",
		Size:        "size_mq",
	}
}

func (c Columns) validate() error {
	for field, col := range map[string]string{
		"name": c.Name, "url": c.URL, "description": c.Description,
		"rooms": c.Rooms, "price": c.Price, "size": c.Size,
	} {
		if strings.TrimSpace(col) == "" {
			return fmt.Errorf("column for %s is not mapped", field)
		}
		if err := CheckIdentifier("column", col); err != nil {
			return err
		}
	}
	return nil
}

// Statement is a parameterized SQL text ready for Session.Query.
type Statement struct {
	SQL    string
	Params []any
}

// ListingSource renders the bounds, summary and detail statements for one
// view in one dialect. It wraps the view in a derived table that renames the
// physical columns to the fixed output names and coerces the numeric ones.
type ListingSource struct {
	dialect Dialect
	view    string
	from    string
}

// NewListingSource validates and quotes view and columns for d.
func NewListingSource(d Dialect, view string, cols Columns) (*ListingSource, error) {
	quotedView, err := QuoteQualified(d, view)
	if err != nil {
		return nil, err
	}
	if err := cols.validate(); err != nil {
		return nil, err
	}

	q := d.QuoteIdentifier
	from := fmt.Sprintf(
		"(SELECT %s AS %s, %s AS %s, %s AS %s, %s AS %s, %s AS %s, %s AS %s FROM %s) AS _l",
		q(cols.Name), ColName,
		q(cols.URL), ColURL,
		q(cols.Description), ColDescription,
		d.NumericCast(q(cols.Rooms)), ColRooms,
		d.NumericCast(q(cols.Price)), ColPrice,
		d.NumericCast(q(cols.Size)), ColSize,
		quotedView,
	)

	return &ListingSource{dialect: d, view: view, from: from}, nil
}

// Dialect returns the dialect the statements are rendered in.
func (s *ListingSource) Dialect() Dialect { return s.dialect }

// View returns the unquoted view name the source was built from.
func (s *ListingSource) View() string { return s.view }

// pricePerM2 is NULL unless size is positive, which also avoids division by zero.
func pricePerM2() string {
	return fmt.Sprintf("CASE WHEN %s > 0 THEN %s / %s END", ColSize, ColPrice, ColSize)
}

// Bounds returns the statement that discovers filter ranges in one round
// trip: one row per distinct room count (NULL included) with the price and
// size extremes and the row count of that group.
func (s *ListingSource) Bounds() Statement {
	sql := fmt.Sprintf(
		"SELECT %[1]s, MIN(%[2]s) AS min_price, MAX(%[2]s) AS max_price, "+
			"MIN(%[3]s) AS min_size, MAX(%[3]s) AS max_size, COUNT(*) AS row_count "+
			"FROM %[4]s GROUP BY %[1]s ORDER BY %[1]s",
		ColRooms, ColPrice, ColSize, s.from,
	)
	return Statement{SQL: sql}
}

// Summary returns the aggregate statement for the filtered view.
func (s *ListingSource) Summary(filter models.FilterState) (Statement, error) {
	where, params, err := s.where(filter)
	if err != nil {
		return Statement{}, err
	}
	sql := fmt.Sprintf(
		"SELECT COUNT(*) AS listing_count, AVG(%s) AS avg_price, AVG(%s) AS avg_price_per_m2 FROM %s%s",
		ColPrice, pricePerM2(), s.from, where,
	)
	return Statement{SQL: sql, Params: params}, nil
}

// Detail returns the row statement for the filtered view ordered by url then
// price. The remaining display columns break ties so pages do not overlap
// when urls repeat. limit <= 0 returns every matching row.
func (s *ListingSource) Detail(filter models.FilterState, limit, offset int) (Statement, error) {
	where, params, err := s.where(filter)
	if err != nil {
		return Statement{}, err
	}
	sql := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s AS %s FROM %s%s ORDER BY %s",
		ColName, ColURL, ColDescription, ColRooms, ColPrice, ColSize,
		pricePerM2(), ColPricePerM2,
		s.from, where, strings.Join(detailOrder, ", "),
	)
	if page := s.dialect.Paginate(limit, offset); page != "" {
		sql += " " + page
	}
	return Statement{SQL: sql, Params: params}, nil
}

// detailOrder is url, price, then every other display column.
var detailOrder = []string{ColURL, ColPrice, ColName, ColRooms, ColSize, ColDescription}

func (s *ListingSource) where(filter models.FilterState) (string, []any, error) {
	clause, params, err := BuildPredicate(s.dialect, filter)
	if err != nil {
		return "", nil, err
	}
	if clause == "" {
		return "", nil, nil
	}
	return " WHERE " + clause, params, nil
}
