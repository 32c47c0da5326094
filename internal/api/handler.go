package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/RichardoC/gardenllm/internal/conversation"
	"github.com/RichardoC/gardenllm/internal/llm"
	"github.com/RichardoC/gardenllm/internal/metrics"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	"github.com/RichardoC/gardenllm/internal/weather"
	"go.uber.org/zap"
)

const forecastDays = 5

// Forecaster is the weather data behind /api/weather.
type Forecaster interface {
	Current(ctx context.Context) (*weather.Current, error)
	Daily(ctx context.Context, days int) ([]weather.Day, error)
}

type Handler struct {
	store   *conversation.Store
	chat    *llm.Service
	plants  plants.Repository
	weather Forecaster
	logger  *zap.Logger
}

func NewHandler(store *conversation.Store, chat *llm.Service, repo plants.Repository, forecaster Forecaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:   store,
		chat:    chat,
		plants:  repo,
		weather: forecaster,
		logger:  logger,
	}
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type FieldUpdateRequest struct {
	Plant string `json:"plant"` // numeric id or exact name
	Field string `json:"field"`
	Value string `json:"value"`
}

type WeatherResponse struct {
	Current  *weather.Current `json:"current"`
	Impact   weather.Impact   `json:"impact"`
	Forecast []weather.Day    `json:"forecast"`
	Advice   string           `json:"plant_care_advice,omitempty"`
}

// Routes registers every endpoint plus the static UI under staticDir.
func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", h.instrument("/api/chat", h.HandleChat))
	mux.HandleFunc("/api/messages", h.instrument("/api/messages", h.GetMessages))
	mux.HandleFunc("/api/conversations", h.instrument("/api/conversations", h.GetConversations))
	mux.HandleFunc("/api/conversations/preview", h.instrument("/api/conversations/preview", h.GetPreview))
	mux.HandleFunc("/api/conversations/delete", h.instrument("/api/conversations/delete", h.DeleteConversation))
	mux.HandleFunc("/api/conversations/mode", h.instrument("/api/conversations/mode", h.UpdateMode))
	mux.HandleFunc("/api/plants", h.instrument("/api/plants", h.Plants))
	mux.HandleFunc("/api/plants/field", h.instrument("/api/plants/field", h.UpdatePlantField))
	mux.HandleFunc("/api/weather", h.instrument("/api/weather", h.GetWeather))
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", metrics.Handler())
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// fail maps domain errors to status codes and logs server side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, conversation.ErrInvalidInput),
		errors.Is(err, plants.ErrInvalidPlant),
		errors.Is(err, plants.ErrUnknownField):
		status = http.StatusBadRequest
	case errors.Is(err, llm.ErrUnknownConversation), errors.Is(err, plants.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, llm.ErrModelUnavailable), errors.Is(err, weather.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	} else {
		h.logger.Debug(msg, zap.Error(err), zap.String("path", r.URL.Path))
	}
	http.Error(w, msg+": "+err.Error(), status)
}

func conversationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if id == "" {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req llm.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.chat.Chat(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to process message", err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Messages(id))
}

// GetConversations lists previews of the active conversations, newest first.
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	convs := h.store.List()
	previews := make([]conversation.Preview, 0, len(convs))
	for _, c := range convs {
		previews = append(previews, conversation.BuildPreview(c))
	}
	h.logger.Debug("Retrieved conversations",
		zap.Int("count", len(previews)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	h.writeJSON(w, http.StatusOK, previews)
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.Preview(id))
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if !h.store.Clear(id) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) UpdateMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	transition, err := h.chat.SwitchMode(id, req.Mode)
	if err != nil {
		h.fail(w, r, "Failed to switch mode", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transition)
}

// Plants searches the plant database on GET and saves a plant on POST.
func (h *Handler) Plants(w http.ResponseWriter, r *http.Request) {
	if h.plants == nil {
		http.Error(w, "Plant database not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		var terms []string
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			terms = append(terms, q)
		}
		found, err := h.plants.Find(r.Context(), terms...)
		if err != nil {
			h.fail(w, r, "Failed to search plants", err)
			return
		}
		h.writeJSON(w, http.StatusOK, found)

	case http.MethodPost:
		var p models.Plant
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		saved, err := h.plants.Upsert(r.Context(), p)
		if err != nil {
			h.fail(w, r, "Failed to save plant", err)
			return
		}
		h.writeJSON(w, http.StatusOK, saved)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) UpdatePlantField(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.plants == nil {
		http.Error(w, "Plant database not configured", http.StatusServiceUnavailable)
		return
	}

	var req FieldUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.plants.UpdateField(r.Context(), req.Plant, req.Field, req.Value); err != nil {
		h.fail(w, r, "Failed to update plant", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetWeather returns current conditions, their garden impact and the daily
// forecast. advice=true adds model generated care advice.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.weather == nil {
		h.fail(w, r, "Unable to retrieve weather", weather.ErrUnavailable)
		return
	}

	cur, err := h.weather.Current(r.Context())
	if err != nil {
		h.fail(w, r, "Unable to retrieve weather", err)
		return
	}
	days, err := h.weather.Daily(r.Context(), forecastDays)
	if err != nil {
		h.fail(w, r, "Unable to retrieve weather forecast", err)
		return
	}

	resp := WeatherResponse{Current: cur, Impact: weather.Analyze(*cur), Forecast: days}
	if wantAdvice, _ := strconv.ParseBool(r.URL.Query().Get("advice")); wantAdvice {
		advice, err := h.chat.PlantCareAdvice(r.Context())
		if err != nil {
			h.logger.Warn("Failed to generate plant care advice", zap.Error(err))
		}
		resp.Advice = advice
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"message":       "GardenLLM server is running",
		"conversations": h.store.Len(),
	})
}
