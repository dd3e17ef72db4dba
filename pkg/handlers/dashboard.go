package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	"github.com/ekaya-inc/listing-explorer/pkg/services"
)

const connectHint = "Enter a database and token to connect."

// DashboardHandler serves the server-rendered dashboard and its forms.
type DashboardHandler struct {
	explorer *Explorer
	tmpl     *template.Template
	static   http.Handler
	logger   *zap.Logger
}

// dashboardView is the data the dashboard template renders.
type dashboardView struct {
	View            string
	DefaultDatabase string
	HasDefaultToken bool
	Connected       bool
	Session         datasource.SessionInfo
	Error           string
	Info            string

	Page           *Page
	Controls       controls
	Headers        []string
	FirstRow       int
	LastRow        int
	PrevURL        string
	NextURL        string
	ExportURL      string
	ExportFilename string
}

// controls seeds the filter widgets from the view's bounds and the current
// selection.
// controls seeds the filter inputs. PriceStepAttr and SizeStepAttr are the
// rendered step attributes: "any" whenever a value is off the step grid, since
// a browser refuses to submit a form holding such a value.
type controls struct {
	PriceLo, PriceHi, PriceStep float64
	SizeLo, SizeHi, SizeStep    float64
	MinPrice, MaxPrice          float64
	MinSize, MaxSize            float64
	PriceStepAttr, SizeStepAttr string
	RoomChoices                 []int
	SelectedRooms               []int
}

// NewDashboardHandler parses the dashboard template from assets, which must
// hold templates/ and static/.
func NewDashboardHandler(explorer *Explorer, assets fs.FS, logger *zap.Logger) (*DashboardHandler, error) {
	tmpl, err := template.New("dashboard.html").Funcs(templateFuncs()).ParseFS(assets, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	return &DashboardHandler{
		explorer: explorer,
		tmpl:     tmpl,
		static:   http.StripPrefix("/static/", http.FileServerFS(static)),
		logger:   logger,
	}, nil
}

// RegisterRoutes registers the dashboard routes on the given mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("POST /connect", h.Connect)
	mux.HandleFunc("POST /disconnect", h.Disconnect)
	mux.HandleFunc("GET /export.csv", h.Export)
	mux.Handle("GET /static/", h.static)
}

// Dashboard handles GET /. A browser arriving without a session is connected
// with the configured defaults when there are any.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view := h.newView()

	_, returning := h.explorer.Browser().Peek(r)
	id, err := h.explorer.Browser().ID(w, r)
	if err != nil {
		h.logger.Error("Failed to issue browser session", zap.Error(err))
		view.Error = "Unable to start a session."
		h.render(w, http.StatusInternalServerError, view)
		return
	}

	info, connected := h.explorer.Info(id)
	if !connected && !returning && h.explorer.HasDefaults() {
		info, err = h.explorer.Connect(r.Context(), id, r.RemoteAddr, models.ConnectionDescriptor{})
		if err != nil {
			h.logger.Warn("Auto-connect with defaults failed",
				zap.String("error", logging.SanitizeError(err)))
			view.Error = userMessage(err)
		} else {
			connected = true
		}
	}

	if !connected {
		if view.Error == "" {
			view.Info = connectHint
		}
		h.render(w, http.StatusOK, view)
		return
	}
	view.Connected, view.Session = true, info

	status := http.StatusOK
	values := r.URL.Query()
	filter, err := ParseFilter(values)
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		view.Error = userMessage(err)
		status = http.StatusBadRequest
		filter = models.FilterState{}
	}
	limit, offset, err := h.explorer.page(values)
	if err != nil {
		view.Error = userMessage(err)
		status = http.StatusBadRequest
		limit, offset = h.explorer.cfg.PageSize, 0
	}

	page, err := h.explorer.Page(r.Context(), id, filter, limit, offset)
	if err != nil {
		status, _ = errorStatus(err)
		view.Error = userMessage(err)
		h.render(w, status, view)
		return
	}

	h.fillPage(&view, page, filter)
	h.render(w, status, view)
}

// Connect handles POST /connect from the connection form.
func (h *DashboardHandler) Connect(w http.ResponseWriter, r *http.Request) {
	view := h.newView()

	if err := r.ParseForm(); err != nil {
		view.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, view)
		return
	}

	id, err := h.explorer.Browser().ID(w, r)
	if err != nil {
		h.logger.Error("Failed to issue browser session", zap.Error(err))
		view.Error = "Unable to start a session."
		h.render(w, http.StatusInternalServerError, view)
		return
	}

	_, err = h.explorer.Connect(r.Context(), id, r.RemoteAddr, models.ConnectionDescriptor{
		Identifier: r.PostForm.Get("database"),
		Token:      r.PostForm.Get("token"),
	})
	if err != nil {
		status, _ := errorStatus(err)
		view.Error = userMessage(err)
		if info, ok := h.explorer.Info(id); ok {
			view.Connected, view.Session = true, info
		}
		h.render(w, status, view)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Disconnect handles POST /disconnect. The cookie is kept, so the next visit
// shows the connection form instead of reconnecting with the defaults.
func (h *DashboardHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.explorer.Browser().Peek(r); ok {
		h.explorer.Disconnect(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *DashboardHandler) newView() dashboardView {
	return dashboardView{
		View:            h.explorer.Service().View(),
		DefaultDatabase: h.explorer.DefaultDatabase(),
		HasDefaultToken: h.explorer.cfg.Defaults.HasToken(),
		Headers:         services.CSVHeader,
		ExportFilename:  h.explorer.Service().ExportFilename(),
	}
}

func (h *DashboardHandler) fillPage(view *dashboardView, page *Page, filter models.FilterState) {
	view.Page = page
	view.Info = page.Warning
	view.Controls = newControls(page.Bounds, filter)

	selection := EncodeFilter(filter)
	view.ExportURL = withQuery("/export.csv", selection)

	if len(page.Rows) > 0 {
		view.FirstRow = page.Offset + 1
		view.LastRow = page.Offset + len(page.Rows)
	}
	if page.Offset > 0 {
		view.PrevURL = h.pageURL(selection, page.Limit, max(0, page.Offset-page.Limit))
	}
	if int64(page.Offset+len(page.Rows)) < page.Summary.ListingCount {
		view.NextURL = h.pageURL(selection, page.Limit, page.Offset+page.Limit)
	}
}

func (h *DashboardHandler) pageURL(selection url.Values, limit, offset int) string {
	values := maps.Clone(selection)
	if limit != h.explorer.cfg.PageSize {
		values.Set(ParamLimit, strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set(ParamOffset, strconv.Itoa(offset))
	}
	return withQuery("/", values)
}

func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func newControls(b *models.Bounds, f models.FilterState) controls {
	c := controls{
		PriceStep:     b.PriceStep(),
		SizeStep:      b.SizeStep(),
		RoomChoices:   b.Rooms,
		SelectedRooms: f.Rooms,
	}
	c.PriceLo, c.PriceHi = b.PriceRange()
	c.SizeLo, c.SizeHi = b.SizeRange()
	c.PriceHi = snapUp(c.PriceLo, c.PriceHi, c.PriceStep)
	c.SizeHi = snapUp(c.SizeLo, c.SizeHi, c.SizeStep)

	c.MinPrice = valueOr(f.MinPrice, c.PriceLo)
	c.MaxPrice = valueOr(f.MaxPrice, c.PriceHi)
	c.MinSize = valueOr(f.MinSize, c.SizeLo)
	c.MaxSize = valueOr(f.MaxSize, c.SizeHi)

	c.PriceStepAttr = stepAttr(c.PriceLo, c.PriceStep, c.PriceHi, c.MinPrice, c.MaxPrice)
	c.SizeStepAttr = stepAttr(c.SizeLo, c.SizeStep, c.SizeHi, c.MinSize, c.MaxSize)

	// No room selection means every room count.
	if len(c.SelectedRooms) == 0 {
		c.SelectedRooms = b.Rooms
	}
	return c
}

// snapUp raises hi to the next point of the grid lo + k*step. Only whole
// grids are snapped; fractional steps render as "any".
func snapUp(lo, hi, step float64) float64 {
	if !isWhole(lo) || !isWhole(step) || step <= 0 {
		return hi
	}
	return lo + math.Ceil((hi-lo)/step)*step
}

func stepAttr(lo, step float64, values ...float64) string {
	if !isWhole(lo) || !isWhole(step) || step <= 0 {
		return "any"
	}
	for _, v := range values {
		if !isWhole(v) || math.Mod(v-lo, step) != 0 {
			return "any"
		}
	}
	return strconv.FormatFloat(step, 'f', -1, 64)
}

func isWhole(v float64) bool {
	return !math.IsInf(v, 0) && v == math.Trunc(v)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// render executes the template into a buffer so a template failure never
// leaves a half-written page.
func (h *DashboardHandler) render(w http.ResponseWriter, status int, view dashboardView) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, view); err != nil {
		h.logger.Error("Failed to render dashboard", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("Failed to write dashboard", zap.Error(err))
	}
}
