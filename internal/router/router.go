package router

import (
	"net/http"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/handler"

	"go.uber.org/zap"
)

func New(agentHandler *handler.AgentHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Sample intake
	mux.HandleFunc("/api/v1/samples/location", post(agentHandler.PushLocation))
	mux.HandleFunc("/api/v1/samples/biometric", post(agentHandler.PushBiometric))
	mux.HandleFunc("/api/v1/samples/batch", post(agentHandler.PushBatch))

	// Session control
	mux.HandleFunc("/api/v1/session/start", post(agentHandler.StartSession))
	mux.HandleFunc("/api/v1/session/stop", post(agentHandler.StopSession))
	mux.HandleFunc("/api/v1/checkpoints", post(agentHandler.CreateCheckpoint))
	mux.HandleFunc("/api/v1/sleep-sessions", post(agentHandler.RecordSleepSession))

	// Timelines
	mux.HandleFunc("/api/v1/timelines", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		agentHandler.ListTimelines(w, r)
	})
	mux.HandleFunc("/api/v1/timelines/delete", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		agentHandler.DeleteTimeline(w, r)
	})

	// Sync and identity
	mux.HandleFunc("/api/v1/sync/trigger", post(agentHandler.TriggerSync))
	mux.HandleFunc("/api/v1/identity", post(agentHandler.SetIdentity))
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		agentHandler.Status(w, r)
	})

	// Logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		mux.ServeHTTP(w, r)
	})
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
