package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// Operation names carried by QueryErrors.
const (
	OpDiscoverBounds = "discover bounds"
	OpFetchSummary   = "fetch summary"
	OpFetchRows      = "fetch rows"
)

// ListingService runs the bounds, summary and detail queries against the
// configured listings view. Every method issues exactly one statement on the
// session it is given and holds no state between calls.
type ListingService interface {
	// DiscoverBounds scans the unfiltered view once. An empty view yields
	// models.NoDataBounds(), not an error.
	DiscoverBounds(ctx context.Context, session datasource.Session) (*models.Bounds, error)

	// FetchSummary returns count, average price and average price per m²
	// (over rows with a positive size) of the filtered view.
	FetchSummary(ctx context.Context, session datasource.Session, filter models.FilterState) (*models.AggregateSummary, error)

	// FetchRows returns the filtered listings ordered by url then price.
	// limit <= 0 returns every row.
	FetchRows(ctx context.Context, session datasource.Session, filter models.FilterState, limit, offset int) ([]models.Listing, error)

	// View returns the configured view name.
	View() string

	// ExportFilename is the CSV download name for the view.
	ExportFilename() string
}

type listingService struct {
	view    string
	columns sqlbuild.Columns
	sources map[string]*sqlbuild.ListingSource // by dialect name
	logger  *zap.Logger
}

var _ ListingService = (*listingService)(nil)

// NewListingService validates view and columns and prepares statements for
// every known dialect.
func NewListingService(view string, columns sqlbuild.Columns, logger *zap.Logger) (ListingService, error) {
	sources := make(map[string]*sqlbuild.ListingSource)
	for _, d := range []sqlbuild.Dialect{sqlbuild.DuckDB, sqlbuild.Postgres, sqlbuild.SQLServer} {
		src, err := sqlbuild.NewListingSource(d, view, columns)
		if err != nil {
			return nil, fmt.Errorf("invalid listings source: %w", err)
		}
		sources[d.Name()] = src
	}

	return &listingService{
		view:    view,
		columns: columns,
		sources: sources,
		logger:  logger.Named("listings"),
	}, nil
}

func (s *listingService) View() string { return s.view }

func (s *listingService) ExportFilename() string { return sqlbuild.ExportFilename(s.view) }

func (s *listingService) source(session datasource.Session) (*sqlbuild.ListingSource, error) {
	d := session.Dialect()
	if src, ok := s.sources[d.Name()]; ok {
		return src, nil
	}
	return sqlbuild.NewListingSource(d, s.view, s.columns)
}

func (s *listingService) DiscoverBounds(ctx context.Context, session datasource.Session) (*models.Bounds, error) {
	src, err := s.source(session)
	if err != nil {
		return nil, apperrors.NewQueryError(OpDiscoverBounds, err)
	}

	stmt := src.Bounds()
	result, err := session.Query(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, apperrors.NewQueryError(OpDiscoverBounds, err)
	}

	bounds := boundsFromGroups(result.Rows)
	s.logger.Debug("discovered bounds",
		zap.String("backend", session.Backend()),
		zap.Int64("total_rows", bounds.TotalRows),
		zap.Ints("rooms", bounds.Rooms),
	)
	return bounds, nil
}

// boundsFromGroups folds the per-room-count rows of the bounds statement into
// view-wide bounds.
func boundsFromGroups(rows []map[string]any) *models.Bounds {
	var (
		total                                int64
		minPrice, maxPrice, minSize, maxSize extreme
		rooms                                []int
	)

	for _, row := range rows {
		total += toInt64(row["row_count"])
		minPrice.low(row["min_price"])
		maxPrice.high(row["max_price"])
		minSize.low(row["min_size"])
		maxSize.high(row["max_size"])
		if r, ok := toInt(row[sqlbuild.ColRooms]); ok {
			rooms = append(rooms, r)
		}
	}

	if total == 0 {
		return models.NoDataBounds()
	}

	slices.Sort(rooms)
	rooms = slices.Compact(rooms)
	if rooms == nil {
		rooms = []int{}
	}

	b := &models.Bounds{
		TotalRows: total,
		MinPrice:  minPrice.v,
		MaxPrice:  maxPrice.v,
		MinSize:   minSize.v,
		MaxSize:   maxSize.v,
		Rooms:     rooms,
	}
	if len(rooms) > 0 {
		b.MinRooms, b.MaxRooms = rooms[0], rooms[len(rooms)-1]
	}
	return b
}

// extreme tracks a running min or max over nullable values; v stays 0 when
// every value is NULL.
type extreme struct {
	v   float64
	set bool
}

func (e *extreme) low(raw any) {
	if f, ok := toFloat(raw); ok && (!e.set || f < e.v) {
		e.v, e.set = f, true
	}
}

func (e *extreme) high(raw any) {
	if f, ok := toFloat(raw); ok && (!e.set || f > e.v) {
		e.v, e.set = f, true
	}
}

func (s *listingService) FetchSummary(ctx context.Context, session datasource.Session, filter models.FilterState) (*models.AggregateSummary, error) {
	src, err := s.source(session)
	if err != nil {
		return nil, apperrors.NewQueryError(OpFetchSummary, err)
	}

	stmt, err := src.Summary(filter)
	if err != nil {
		return nil, filterError(OpFetchSummary, err)
	}

	result, err := session.Query(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, apperrors.NewQueryError(OpFetchSummary, err)
	}
	if len(result.Rows) != 1 {
		return nil, apperrors.NewQueryError(OpFetchSummary,
			fmt.Errorf("expected one aggregate row, got %d", len(result.Rows)))
	}

	row := result.Rows[0]
	summary := &models.AggregateSummary{
		ListingCount:  toInt64(row["listing_count"]),
		AvgPrice:      floatOrZero(row["avg_price"]),
		AvgPricePerM2: floatOrZero(row["avg_price_per_m2"]),
	}

	s.logger.Debug("fetched summary",
		zap.String("backend", session.Backend()),
		zap.Int("params", len(stmt.Params)),
		zap.Int64("listing_count", summary.ListingCount),
	)
	return summary, nil
}

func (s *listingService) FetchRows(ctx context.Context, session datasource.Session, filter models.FilterState, limit, offset int) ([]models.Listing, error) {
	src, err := s.source(session)
	if err != nil {
		return nil, apperrors.NewQueryError(OpFetchRows, err)
	}

	stmt, err := src.Detail(filter, limit, offset)
	if err != nil {
		return nil, filterError(OpFetchRows, err)
	}

	result, err := session.Query(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, apperrors.NewQueryError(OpFetchRows, err)
	}

	listings := make([]models.Listing, 0, len(result.Rows))
	for _, row := range result.Rows {
		listings = append(listings, listingFromRow(row))
	}

	s.logger.Debug("fetched rows",
		zap.String("backend", session.Backend()),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
		zap.Int("rows", len(listings)),
	)
	return listings, nil
}

func listingFromRow(row map[string]any) models.Listing {
	l := models.Listing{
		Name:        toText(row[sqlbuild.ColName]),
		URL:         toString(row[sqlbuild.ColURL]),
		Description: toText(row[sqlbuild.ColDescription]),
		Price:       floatPtr(row[sqlbuild.ColPrice]),
		SizeM2:      floatPtr(row[sqlbuild.ColSize]),
		PricePerM2:  floatPtr(row[sqlbuild.ColPricePerM2]),
	}
	if r, ok := toInt(row[sqlbuild.ColRooms]); ok {
		l.Rooms = &r
	}
	return l
}

// filterError marks a predicate that could not be built from the filter.
func filterError(op string, err error) error {
	return apperrors.NewQueryError(op, fmt.Errorf("%w: %s", apperrors.ErrInvalidFilter, err.Error()))
}

func floatOrZero(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return f
}

func floatPtr(v any) *float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return nil
	}
	return &f
}
