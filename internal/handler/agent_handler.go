package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/identity"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/repository"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/service"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/synthesizer"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/tracker"

	"go.uber.org/zap"
)

// AgentHandler exposes the engine to the mobile shell and the
// companion-device bridge over the local HTTP intake.
type AgentHandler struct {
	sessions *service.SessionService
	sync     *service.SyncService
	store    *repository.TimelineRepository
	ingestor *ingest.Ingestor
	identity *identity.Store
	logger   *zap.Logger
}

func NewAgentHandler(
	sessions *service.SessionService,
	syncService *service.SyncService,
	store *repository.TimelineRepository,
	ingestor *ingest.Ingestor,
	identityStore *identity.Store,
	logger *zap.Logger,
) *AgentHandler {
	return &AgentHandler{
		sessions: sessions,
		sync:     syncService,
		store:    store,
		ingestor: ingestor,
		identity: identityStore,
		logger:   logger,
	}
}

func (h *AgentHandler) PushLocation(w http.ResponseWriter, r *http.Request) {
	var sample models.LocationSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		h.logger.Error("Failed to decode location sample", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.ingestor.PushLocation(sample)
	w.WriteHeader(http.StatusAccepted)
}

func (h *AgentHandler) PushBiometric(w http.ResponseWriter, r *http.Request) {
	var sample models.BiometricSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		h.logger.Error("Failed to decode biometric sample", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.ingestor.PushBiometric(sample)
	w.WriteHeader(http.StatusAccepted)
}

// PushBatch accepts a companion-device replay: historical points plus live
// points, possibly overlapping samples already ingested.
func (h *AgentHandler) PushBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locations  []models.LocationSample  `json:"locations"`
		Biometrics []models.BiometricSample `json:"biometrics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode sample batch", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.ingestor.PushLocationBatch(req.Locations)
	for _, b := range req.Biometrics {
		h.ingestor.PushBiometric(b)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AgentHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.StartSession(); err != nil {
		if errors.Is(err, tracker.ErrAlreadyTracking) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("Failed to start session", zap.Error(err))
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *AgentHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	timelineID, err := h.sessions.StopSession()
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrNotTracking):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, tracker.ErrEmptyTrace):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("Failed to stop session", zap.Error(err))
			http.Error(w, "Failed to stop session", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"timeline_id": timelineID})
}

func (h *AgentHandler) CreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var input synthesizer.ManualInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Error("Failed to decode checkpoint input", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cp, err := h.sessions.AddManualCheckpoint(input)
	if err != nil {
		h.logger.Error("Failed to create checkpoint", zap.Error(err))
		http.Error(w, "Failed to create checkpoint", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cp)
}

func (h *AgentHandler) RecordSleepSession(w http.ResponseWriter, r *http.Request) {
	var payload models.SleepPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("Failed to decode sleep session", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.sessions.RecordSleepSession(payload); err != nil {
		h.logger.Error("Failed to record sleep session", zap.Error(err))
		http.Error(w, "Failed to record sleep session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AgentHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	succeeded, remaining, err := h.sync.Drain(r.Context())
	if err != nil {
		h.logger.Error("Sync trigger failed", zap.Error(err))
		http.Error(w, "Sync failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"succeeded": succeeded,
		"remaining": remaining,
	})
}

func (h *AgentHandler) ListTimelines(w http.ResponseWriter, r *http.Request) {
	timelines, err := h.store.List()
	if err != nil {
		h.logger.Error("Failed to list timelines", zap.Error(err))
		http.Error(w, "Failed to list timelines", http.StatusInternalServerError)
		return
	}
	if timelines == nil {
		timelines = []models.Timeline{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timelines)
}

func (h *AgentHandler) DeleteTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("Failed to delete timeline", zap.Error(err))
		http.Error(w, "Failed to delete timeline", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AgentHandler) SetIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.identity.SetUserID(req.UserID); err != nil {
		h.logger.Error("Failed to set identity", zap.Error(err))
		http.Error(w, "Failed to set identity", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessions.Status())
}
