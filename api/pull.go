package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/providers"
	"github.com/storebridge/storebridge/services"
	"github.com/storebridge/storebridge/utils"
)

// PullHandler serves the Manager's pull endpoint. Like the receive endpoint it
// sits behind the signature middleware: only the paired instance can trigger a
// pull.
type PullHandler struct {
	coordinator *services.PullCoordinator
	logger      *utils.Logger
}

func NewPullHandler(coordinator *services.PullCoordinator) *PullHandler {
	return &PullHandler{
		coordinator: coordinator,
		logger:      utils.NewLogger("pull-api"),
	}
}

func (h *PullHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/client/request_pull", h.RequestPull).Methods(http.MethodPost)
}

func (h *PullHandler) RequestPull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.ErrInvalidRequest)
		return
	}

	response, err := h.coordinator.Pull(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPullDisabled):
			writeError(w, utils.NewAPIError(http.StatusForbidden, "Manual pull is disabled"))
		case errors.Is(err, services.ErrPullRateLimited):
			writeError(w, utils.ErrRateLimited)
		default:
			utils.LogError(ctx, err, "Pull failed", map[string]interface{}{
				"store_id": req.StoreID,
			})
			writeError(w, utils.ErrInternalServer)
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// TriggerHandler is the Executor-side convenience endpoint that forwards an
// operator's pull request to the Manager.
type TriggerHandler struct {
	manager *providers.ManagerClient
	logger  *utils.Logger
}

func NewTriggerHandler(manager *providers.ManagerClient) *TriggerHandler {
	return &TriggerHandler{
		manager: manager,
		logger:  utils.NewLogger("trigger-api"),
	}
}

func (h *TriggerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/pull/trigger", h.Trigger).Methods(http.MethodPost)
}

func (h *TriggerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, utils.ErrInvalidRequest)
		return
	}

	response, err := h.manager.RequestPull(ctx, &req)
	if err != nil {
		utils.LogError(ctx, err, "Pull trigger failed", map[string]interface{}{
			"store_id": req.StoreID,
		})
		writeError(w, utils.NewAPIError(http.StatusBadGateway, "Manager pull request failed"))
		return
	}

	writeJSON(w, http.StatusOK, response)
}
