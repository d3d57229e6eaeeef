package api

import (
	"net/http"

	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

// DetectHandler handles detection requests.
type DetectHandler struct {
	deps    Dependencies
	decoder decoder
	logger  logger.Logger
}

// HandleDetect handles POST /detect requests.
func (h *DetectHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	const op = "api.detect"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	batch, opts, err := h.decoder.decode(op, w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}

	v, err := h.deps.Detect(r.Context(), batch, opts...)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewDetectResponse(v))
}
