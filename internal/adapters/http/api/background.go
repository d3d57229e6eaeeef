package api

import (
	"net/http"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

// Response headers describing a selection when the body is CSV.
const (
	HeaderRunID   = "X-Run-ID"
	HeaderOutcome = "X-Outcome"
	HeaderReason  = "X-Reason"
)

// BackgroundHandler handles background selection requests.
type BackgroundHandler struct {
	deps    Dependencies
	decoder decoder
	logger  logger.Logger
}

// HandleBackground handles POST /background requests. An empty selection is
// a normal answer and is returned with status 200.
func (h *BackgroundHandler) HandleBackground(w http.ResponseWriter, r *http.Request) {
	const op = "api.background"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	batch, opts, err := h.decoder.decode(op, w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}

	runID, res, err := h.deps.SelectBackground(r.Context(), batch, opts...)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}

	w.Header().Set(HeaderRunID, runID)
	w.Header().Set(HeaderOutcome, res.Outcome.String())
	if !wantsCSV(r) {
		writeJSON(w, http.StatusOK, types.NewScanResponse(runID, res))
		return
	}

	if res.Reason != nil {
		w.Header().Set(HeaderReason, background.Label(res.Reason))
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := csvio.WriteScan(w, res.Scan); err != nil {
		h.logger.Warn(r.Context(), "failed to write csv response",
			logger.String("run_id", runID), logger.Error(err))
	}
}
