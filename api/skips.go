package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/storebridge/storebridge/stores"
	"github.com/storebridge/storebridge/utils"
)

// SkipHandler lists SKU skip records so operators can see which entities never
// made it into a command.
type SkipHandler struct {
	store *stores.SkuSkipStore
}

func NewSkipHandler(store *stores.SkuSkipStore) *SkipHandler {
	return &SkipHandler{store: store}
}

func (h *SkipHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stores/{store_id}/sku-skips", h.List).Methods(http.MethodGet)
}

func (h *SkipHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["store_id"]
	limit, offset := pagination(r)

	records, err := h.store.ListByStore(r.Context(), storeID, limit, offset)
	if err != nil {
		utils.LogError(r.Context(), err, "Failed to list sku skips", map[string]interface{}{"store_id": storeID})
		writeError(w, utils.ErrInternalServer)
		return
	}

	total, err := h.store.CountByStore(r.Context(), storeID)
	if err != nil {
		utils.LogError(r.Context(), err, "Failed to count sku skips", map[string]interface{}{"store_id": storeID})
		writeError(w, utils.ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"store_id": storeID,
		"records":  records,
		"total":    total,
	})
}
