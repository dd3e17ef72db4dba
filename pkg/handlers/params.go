package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

// Filter and paging query parameters shared by the dashboard, the CSV export
// and the JSON API.
const (
	ParamMinRooms = "min_rooms"
	ParamMaxRooms = "max_rooms"
	ParamMinPrice = "min_price"
	ParamMaxPrice = "max_price"
	ParamMinSize  = "min_size"
	ParamMaxSize  = "max_size"
	ParamRooms    = "rooms"
	ParamLimit    = "limit"
	ParamOffset   = "offset"
)

// ParseFilter reads a FilterState from query parameters. Absent or empty
// parameters leave the bound unset. Malformed numbers wrap
// apperrors.ErrInvalidFilter.
func ParseFilter(values url.Values) (models.FilterState, error) {
	var (
		filter models.FilterState
		err    error
	)

	if filter.MinRooms, err = optionalInt(values, ParamMinRooms); err != nil {
		return models.FilterState{}, err
	}
	if filter.MaxRooms, err = optionalInt(values, ParamMaxRooms); err != nil {
		return models.FilterState{}, err
	}
	if filter.MinPrice, err = optionalFloat(values, ParamMinPrice); err != nil {
		return models.FilterState{}, err
	}
	if filter.MaxPrice, err = optionalFloat(values, ParamMaxPrice); err != nil {
		return models.FilterState{}, err
	}
	if filter.MinSize, err = optionalFloat(values, ParamMinSize); err != nil {
		return models.FilterState{}, err
	}
	if filter.MaxSize, err = optionalFloat(values, ParamMaxSize); err != nil {
		return models.FilterState{}, err
	}

	for _, raw := range values[ParamRooms] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.FilterState{}, invalidParam(ParamRooms, raw)
		}
		filter.Rooms = append(filter.Rooms, n)
	}

	if err := filter.Validate(); err != nil {
		return models.FilterState{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidFilter, err)
	}
	return filter, nil
}

// ParsePage reads limit and offset. A missing limit falls back to
// defaultLimit; limits above maxLimit are capped.
func ParsePage(values url.Values, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := strings.TrimSpace(values.Get(ParamLimit)); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			return 0, 0, invalidParam(ParamLimit, raw)
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := strings.TrimSpace(values.Get(ParamOffset)); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, invalidParam(ParamOffset, raw)
		}
	}
	return limit, offset, nil
}

// EncodeFilter is the inverse of ParseFilter. Used to build pager and
// download links that keep the current selection.
func EncodeFilter(filter models.FilterState) url.Values {
	values := url.Values{}
	setInt := func(key string, v *int) {
		if v != nil {
			values.Set(key, strconv.Itoa(*v))
		}
	}
	setFloat := func(key string, v *float64) {
		if v != nil {
			values.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}

	setInt(ParamMinRooms, filter.MinRooms)
	setInt(ParamMaxRooms, filter.MaxRooms)
	setFloat(ParamMinPrice, filter.MinPrice)
	setFloat(ParamMaxPrice, filter.MaxPrice)
	setFloat(ParamMinSize, filter.MinSize)
	setFloat(ParamMaxSize, filter.MaxSize)
	for _, r := range filter.Rooms {
		values.Add(ParamRooms, strconv.Itoa(r))
	}
	return values
}

func optionalInt(values url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidParam(key, raw)
	}
	return &n, nil
}

func optionalFloat(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalidParam(key, raw)
	}
	return &v, nil
}

func invalidParam(key, raw string) error {
	return fmt.Errorf("%w: %s must be a number, got %q", apperrors.ErrInvalidFilter, key, raw)
}
