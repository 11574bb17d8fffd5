package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/stores"
	"github.com/storebridge/storebridge/utils"
	"gorm.io/gorm"
)

// CommandHandler exposes the Manager's operator surface: inspect commands and
// work the dead-letter queue.
type CommandHandler struct {
	store  *stores.CommandStore
	logger *utils.Logger
}

func NewCommandHandler(store *stores.CommandStore) *CommandHandler {
	return &CommandHandler{
		store:  store,
		logger: utils.NewLogger("commands-api"),
	}
}

func (h *CommandHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/commands/dead", h.ListDead).Methods(http.MethodGet)
	router.HandleFunc("/commands/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/commands/{id}/requeue", h.Requeue).Methods(http.MethodPost)
	router.HandleFunc("/commands/{id}/cancel", h.Cancel).Methods(http.MethodPost)
}

func (h *CommandHandler) ListDead(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	commands, err := h.store.ListDead(r.Context(), limit, offset)
	if err != nil {
		utils.LogError(r.Context(), err, "Failed to list dead commands", nil)
		writeError(w, utils.ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"commands": commands,
		"count":    len(commands),
	})
}

func (h *CommandHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	command, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, utils.NewAPIError(http.StatusNotFound, "Command not found"))
			return
		}
		utils.LogError(r.Context(), err, "Failed to get command", map[string]interface{}{"command_id": id})
		writeError(w, utils.ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, command)
}

func (h *CommandHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.RequeueDead(r.Context(), id); err != nil {
		if errors.Is(err, stores.ErrNotRequeuable) {
			writeError(w, utils.NewAPIError(http.StatusConflict, "Only dead commands can be requeued"))
			return
		}
		utils.LogError(r.Context(), err, "Failed to requeue command", map[string]interface{}{"command_id": id})
		writeError(w, utils.ErrInternalServer)
		return
	}

	h.logger.Info(r.Context(), "Command requeued", map[string]interface{}{"command_id": id})
	writeJSON(w, http.StatusOK, map[string]string{
		"command_id": id,
		"status":     string(models.CommandQueued),
	})
}

func (h *CommandHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.CancelQueued(r.Context(), id); err != nil {
		if errors.Is(err, stores.ErrNotCancelable) {
			writeError(w, utils.NewAPIError(http.StatusConflict, "Command can only be cancelled while queued"))
			return
		}
		utils.LogError(r.Context(), err, "Failed to cancel command", map[string]interface{}{"command_id": id})
		writeError(w, utils.ErrInternalServer)
		return
	}

	h.logger.Info(r.Context(), "Command cancelled", map[string]interface{}{"command_id": id})
	writeJSON(w, http.StatusOK, map[string]string{
		"command_id": id,
		"status":     string(models.CommandRejected),
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
