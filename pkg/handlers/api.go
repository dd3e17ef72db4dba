package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

const queryRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"min_rooms": {"type": ["integer", "null"], "minimum": 0},
		"max_rooms": {"type": ["integer", "null"], "minimum": 0},
		"min_price": {"type": ["number", "null"]},
		"max_price": {"type": ["number", "null"]},
		"min_size":  {"type": ["number", "null"]},
		"max_size":  {"type": ["number", "null"]},
		"rooms": {
			"type": "array",
			"items": {"type": "integer", "minimum": 0},
			"maxItems": 100
		},
		"limit":  {"type": "integer", "minimum": 1},
		"offset": {"type": "integer", "minimum": 0}
	}
}`

var querySchema = jsonschema.MustCompileString("query_request.json", queryRequestSchema)

// ConnectRequest is the body of POST /api/session. Empty fields fall back to
// the configured defaults.
type ConnectRequest struct {
	Database string `json:"database"`
	Token    string `json:"token"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	models.FilterState
	Limit  *int `json:"limit,omitempty"`
	Offset *int `json:"offset,omitempty"`
}

// APIHandler serves the JSON API.
type APIHandler struct {
	explorer *Explorer
	logger   *zap.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(explorer *Explorer, logger *zap.Logger) *APIHandler {
	return &APIHandler{explorer: explorer, logger: logger}
}

// RegisterRoutes registers the API routes on the given mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.Connect)
	mux.HandleFunc("DELETE /api/session", h.Disconnect)
	mux.HandleFunc("GET /api/session", h.Session)
	mux.HandleFunc("GET /api/bounds", h.Bounds)
	mux.HandleFunc("GET /api/summary", h.Summary)
	mux.HandleFunc("GET /api/listings", h.Listings)
	mux.HandleFunc("POST /api/query", h.Query)
}

// Connect handles POST /api/session.
func (h *APIHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	id, err := h.explorer.Browser().ID(w, r)
	if err != nil {
		writeServiceError(w, fmt.Errorf("browser session: %w", err), h.logger)
		return
	}

	info, err := h.explorer.Connect(r.Context(), id, r.RemoteAddr, models.ConnectionDescriptor{
		Identifier: req.Database,
		Token:      req.Token,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.writeData(w, info)
}

// Disconnect handles DELETE /api/session. It closes the backend session and
// expires the cookie.
func (h *APIHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, err := h.explorer.Browser().Clear(w, r)
	if err != nil {
		writeServiceError(w, apperrors.ErrNotConnected, h.logger)
		return
	}

	disconnected := h.explorer.Disconnect(id)
	h.writeData(w, map[string]bool{"disconnected": disconnected})
}

// Session handles GET /api/session.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	info, ok := h.explorer.Info(id)
	if !ok {
		writeServiceError(w, apperrors.ErrNotConnected, h.logger)
		return
	}
	h.writeData(w, info)
}

// Bounds handles GET /api/bounds.
func (h *APIHandler) Bounds(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	bounds, err := h.explorer.Bounds(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeData(w, bounds)
}

// Summary handles GET /api/summary.
func (h *APIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		writeServiceError(w, err, h.logger)
		return
	}

	summary, err := h.explorer.Summary(r.Context(), id, filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeResult(w, summary, summary.Empty())
}

// Listings handles GET /api/listings.
func (h *APIHandler) Listings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	values := r.URL.Query()
	filter, err := ParseFilter(values)
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		writeServiceError(w, err, h.logger)
		return
	}
	limit, offset, err := h.explorer.page(values)
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		writeServiceError(w, err, h.logger)
		return
	}

	rows, err := h.explorer.Rows(r.Context(), id, filter, limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeResult(w, map[string]any{
		"rows":   rows,
		"limit":  limit,
		"offset": offset,
	}, len(rows) == 0 && offset == 0)
}

// Query handles POST /api/query: a schema-validated filter body returning
// bounds, market snapshot, filtered summary and one page of rows.
func (h *APIHandler) Query(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	req, err := decodeQueryRequest(r.Body)
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		writeServiceError(w, err, h.logger)
		return
	}

	limit, offset := h.explorer.cfg.PageSize, 0
	if req.Limit != nil {
		limit = min(*req.Limit, h.explorer.cfg.MaxPageSize)
	}
	if req.Offset != nil {
		offset = *req.Offset
	}

	page, err := h.explorer.Page(r.Context(), id, req.FilterState, limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: page, Warning: page.Warning}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decodeQueryRequest validates body against the query schema and decodes it.
// Every failure wraps apperrors.ErrInvalidFilter.
func decodeQueryRequest(body io.Reader) (*QueryRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperrors.ErrInvalidFilter, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: body is not valid JSON: %v", apperrors.ErrInvalidFilter, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: body is not valid JSON: trailing data", apperrors.ErrInvalidFilter)
	}
	if err := querySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFilter, err)
	}

	// The schema accepts 2.0 as an integer; encoding/json does not.
	canonical, err := json.Marshal(wholeNumbers(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFilter, err)
	}
	var req QueryRequest
	if err := json.Unmarshal(canonical, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFilter, err)
	}
	return &req, nil
}

// wholeNumbers rewrites every number with an integral value ("2.0", "2e0")
// into plain integer notation.
func wholeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = wholeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = wholeNumbers(e)
		}
	case json.Number:
		if r, ok := new(big.Rat).SetString(string(t)); ok && r.IsInt() {
			return json.Number(r.Num().String())
		}
	}
	return v
}

// sessionID returns the browser session id, answering 401 when the request
// carries none.
func (h *APIHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := h.explorer.Browser().Peek(r)
	if !ok {
		writeServiceError(w, apperrors.ErrNotConnected, h.logger)
		return "", false
	}
	return id, true
}

func (h *APIHandler) writeData(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeResult writes data with the empty-result warning when nothing matched.
func (h *APIHandler) writeResult(w http.ResponseWriter, data any, empty bool) {
	resp := ApiResponse{Success: true, Data: data}
	if empty {
		resp.Warning = apperrors.ErrEmptyResult.Error()
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
