package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/storebridge/storebridge/middleware"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/services"
	"github.com/storebridge/storebridge/stores"
	"github.com/storebridge/storebridge/utils"
)

// ReceiveHandler is the Executor's command intake. The signature middleware has
// already authenticated the request by the time these handlers run.
type ReceiveHandler struct {
	applier *services.Applier
	logger  *utils.Logger
}

func NewReceiveHandler(applier *services.Applier) *ReceiveHandler {
	return &ReceiveHandler{
		applier: applier,
		logger:  utils.NewLogger("receive-api"),
	}
}

func (h *ReceiveHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/commands/receive", h.Receive).Methods(http.MethodPost)
}

func (h *ReceiveHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawBody := middleware.RawBody(ctx)
	if rawBody == nil {
		writeJSON(w, http.StatusBadRequest, models.RejectedAck("missing_body"))
		return
	}

	key := middleware.IdempotencyKey(ctx)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, models.RejectedAck("missing_idempotency_key"))
		return
	}

	var env models.CommandEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil || env.CommandID == "" {
		writeJSON(w, http.StatusBadRequest, models.RejectedAck("malformed_envelope"))
		return
	}

	// The header key is authoritative; a body that disagrees is malformed.
	if env.IdempotencyKey != "" && env.IdempotencyKey != key {
		writeJSON(w, http.StatusBadRequest, models.RejectedAck("idempotency_key_mismatch"))
		return
	}
	env.IdempotencyKey = key

	ack, err := h.applier.Apply(ctx, &env, stores.HashRequest(rawBody), r.RemoteAddr)
	if err != nil {
		if errors.Is(err, services.ErrIPNotAllowed) {
			writeJSON(w, http.StatusForbidden, models.RejectedAck("ip_not_allowed"))
			return
		}
		utils.LogError(ctx, err, "Apply failed", map[string]interface{}{
			"command_id": env.CommandID,
		})
		writeError(w, utils.ErrInternalServer)
		return
	}

	writeJSON(w, http.StatusOK, ack)
}
