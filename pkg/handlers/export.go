package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/services"
)

// Export handles GET /export.csv: every listing matching the filter in the
// query string, as CSV named after the view.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.explorer.Browser().Peek(r)
	if !ok {
		writeServiceError(w, apperrors.ErrNotConnected, h.logger)
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.explorer.RejectInput(id, r.RemoteAddr, err)
		writeServiceError(w, err, h.logger)
		return
	}

	rows, err := h.explorer.Rows(r.Context(), id, filter, 0, 0)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	data, err := services.ToCSV(rows)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	filename := h.explorer.Service().ExportFilename()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Failed to write export", zap.Error(err))
	}

	h.logger.Info("Exported listings",
		zap.Int("rows", len(rows)),
		zap.String("filename", filename),
	)
}
