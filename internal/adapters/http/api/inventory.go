package api

import (
	"net/http"

	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

// InventoryHandler handles inventory requests.
type InventoryHandler struct {
	deps    Dependencies
	decoder decoder
	logger  logger.Logger
}

type inventoryResponse struct {
	Groups []types.Group `json:"groups"`
}

// HandleInventory handles POST /inventory requests.
func (h *InventoryHandler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	const op = "api.inventory"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	batch, opts, err := h.decoder.decode(op, w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}

	groups, err := h.deps.Inventory(r.Context(), batch, opts...)
	if err != nil {
		fail(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResponse{Groups: types.NewGroups(groups)})
}
