// Package llm runs chat turns: it gathers plant records and weather context,
// keeps the conversation history in the store and asks the language model
// for the reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/conversation"
	"github.com/RichardoC/gardenllm/internal/metrics"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	"github.com/RichardoC/gardenllm/internal/weather"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

var (
	ErrModelUnavailable    = errors.New("language model unavailable")
	ErrUnknownConversation = errors.New("conversation not found")
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 1000

	contextSummaryLen = 300
)

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Mode           string `json:"mode,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	Mode           string `json:"mode"`
	Length         int    `json:"length"`
	Sections       int    `json:"sections"`
}

// Transition describes a mode change of a conversation.
type Transition struct {
	ConversationID string    `json:"conversation_id"`
	PreviousMode   string    `json:"previous_mode"`
	NewMode        string    `json:"new_mode"`
	SystemPrompt   string    `json:"system_prompt"`
	ContextSummary string    `json:"context_summary"`
	RecentTopics   []string  `json:"recent_topics"`
	Timestamp      time.Time `json:"transition_timestamp"`
}

// WeatherContext supplies the weather system messages for a chat turn.
type WeatherContext interface {
	Messages(ctx context.Context) []models.Message
}

// CurrentWeather supplies the observation used for care advice.
type CurrentWeather interface {
	Current(ctx context.Context) (*weather.Current, error)
}

type Config struct {
	Timeout   time.Duration
	MaxTokens int
	// WeatherAware adds weather context to every turn, not only to weather questions.
	WeatherAware bool
	Climate      *config.Climate
}

type Service struct {
	model      llms.Model
	store      *conversation.Store
	plants     plants.Repository
	weatherCtx WeatherContext
	weather    CurrentWeather
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

type Option func(*Service)

func WithPlants(repo plants.Repository) Option {
	return func(s *Service) {
		s.plants = repo
	}
}

func WithWeather(ctx WeatherContext, current CurrentWeather) Option {
	return func(s *Service) {
		s.weatherCtx = ctx
		s.weather = current
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOpenAI connects to an OpenAI compatible endpoint. An empty baseURL uses
// the OpenAI default.
func NewOpenAI(baseURL, token, model string) (llms.Model, error) {
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

// New builds a chat service. model may be nil, in which case only answers
// that come straight from the plant database are available.
func New(model llms.Model, store *conversation.Store, cfg Config, opts ...Option) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	s := &Service{
		model:  model,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// turn is what the plant and weather lookups contribute to one chat turn.
type turn struct {
	context []models.Message // system messages stored ahead of the user message
	reply   string           // answer taken from the records, skips the model
	links   string           // appended to the model's reply
}

// Chat handles one user message and returns the assistant's reply.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" && req.ImageURL == "" {
		return nil, fmt.Errorf("%w: message is required", conversation.ErrInvalidInput)
	}
	if req.Mode != "" && !validMode(req.Mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", conversation.ErrInvalidInput, req.Mode)
	}

	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		id = s.store.NewID()
	}
	mode, err := s.resolveMode(id, req)
	if err != nil {
		return nil, err
	}

	user := models.Message{Role: models.RoleUser, Content: text, Mode: mode}
	if req.ImageURL != "" {
		user.Images = []string{req.ImageURL}
	}

	var t turn
	q := plants.Query{Kind: plants.KindNone}
	if mode != models.ModeImageAnalysis && text != "" {
		q = plants.Analyze(text)
		t = s.plantTurn(ctx, q, mode)
	}
	if t.reply == "" && s.weatherCtx != nil && (s.cfg.WeatherAware || q.Weather) {
		t.context = append(s.weatherCtx.Messages(ctx), t.context...)
	}

	pending := append(t.context, user)
	reply := t.reply
	if reply == "" {
		history, err := s.store.Draft(id, pending...)
		if err != nil {
			return nil, err
		}
		reply, err = s.complete(ctx, mode, history)
		if err != nil {
			return nil, err
		}
		reply += t.links
	}
	// The turn is stored only once it has a reply.
	pending = append(pending, models.Message{Role: models.RoleAssistant, Content: reply, Mode: mode})
	if err := s.store.AppendTurn(id, pending...); err != nil {
		return nil, err
	}

	s.logger.Info("chat turn completed",
		zap.String("conversation_id", id),
		zap.String("mode", mode),
		zap.String("query", string(q.Kind)),
		zap.Bool("direct", t.reply != ""),
		zap.Int("length", len(reply)))

	return &ChatResponse{
		ConversationID: id,
		Response:       reply,
		Mode:           mode,
		Length:         utf8.RuneCountInString(reply),
		Sections:       strings.Count(reply, "###"),
	}, nil
}

// resolveMode picks the mode for this turn, switching or creating the
// conversation as needed.
func (s *Service) resolveMode(id string, req ChatRequest) (string, error) {
	conv, ok := s.store.Snapshot(id)
	mode := req.Mode
	if ok && conv.Mode != "" {
		if mode == "" {
			return conv.Mode, nil
		}
		if mode != conv.Mode {
			if _, err := s.SwitchMode(id, mode); err != nil {
				return "", err
			}
		}
		return mode, nil
	}

	if mode == "" {
		mode = models.ModeGeneral
		if req.ImageURL != "" {
			mode = models.ModeImageAnalysis
		}
	}
	if err := s.store.Create(id, mode, nil); err != nil {
		return "", err
	}
	return mode, nil
}

func (s *Service) plantTurn(ctx context.Context, q plants.Query, mode string) turn {
	if s.plants == nil || q.Kind == plants.KindNone {
		return turn{}
	}

	if q.Kind == plants.KindList {
		all, err := s.plants.All(ctx)
		if err != nil {
			s.logger.Warn("failed to list plants", zap.Error(err))
			return turn{}
		}
		if len(all) == 0 {
			return turn{reply: emptyGardenText}
		}
		return turn{context: []models.Message{plantMessage(plantList(plants.Names(all)))}}
	}

	found, err := s.plants.Find(ctx, q.Term)
	if err != nil {
		s.logger.Warn("plant lookup failed", zap.String("term", q.Term), zap.Error(err))
		return turn{}
	}
	s.logger.Debug("plant lookup",
		zap.String("term", q.Term),
		zap.String("kind", string(q.Kind)),
		zap.Int("found", len(found)))

	if len(found) == 0 {
		if mode == models.ModeDatabase {
			return turn{reply: fmt.Sprintf(notFoundReply, q.Term)}
		}
		return turn{}
	}

	switch q.Kind {
	case plants.KindLocation:
		return turn{reply: locationReply(found)}
	case plants.KindPhoto:
		return turn{reply: photoReply(found)}
	}
	return turn{
		context: []models.Message{plantMessage(plantData(found))},
		links:   photoLinks(found),
	}
}

func plantMessage(content string) models.Message {
	return models.Message{Role: models.RoleSystem, Category: models.CategoryPlantData, Content: content}
}

// SwitchMode moves an active conversation to another mode and records the
// hand-over in its history.
func (s *Service) SwitchMode(id, mode string) (Transition, error) {
	if !validMode(mode) {
		return Transition{}, fmt.Errorf("%w: unknown mode %q", conversation.ErrInvalidInput, mode)
	}

	preview := s.store.Preview(id)
	prev, ok := s.store.SetMode(id, mode)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}

	summary := preview.ContextLine(contextSummaryLen)
	note := fmt.Sprintf("Mode changed to %s.", mode)
	if prev != "" {
		note = fmt.Sprintf("Mode changed from %s to %s.", prev, mode)
	}
	if summary != "" {
		note += " Conversation so far: " + summary
	}
	if err := s.store.Append(id, models.Message{
		Role:     models.RoleSystem,
		Category: models.CategoryInstructions,
		Content:  note,
		Mode:     mode,
	}); err != nil {
		return Transition{}, err
	}

	s.logger.Info("switched conversation mode",
		zap.String("conversation_id", id),
		zap.String("from", prev),
		zap.String("to", mode))

	return Transition{
		ConversationID: id,
		PreviousMode:   prev,
		NewMode:        mode,
		SystemPrompt:   SystemPrompt(mode, s.cfg.Climate),
		ContextSummary: summary,
		RecentTopics:   preview.KeyTopics,
		Timestamp:      s.now(),
	}, nil
}

// PlantCareAdvice asks the model for HTML care advice for the current weather.
func (s *Service) PlantCareAdvice(ctx context.Context) (string, error) {
	if s.weather == nil {
		return "", weather.ErrUnavailable
	}
	cur, err := s.weather.Current(ctx)
	if err != nil {
		return "", err
	}

	location, climate := "local", ""
	if s.cfg.Climate != nil {
		location, climate = s.cfg.Climate.Location, s.cfg.Climate.Context()
	}
	text, err := s.generate(ctx, "advice", []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, weather.AdviceSystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, weather.AdvicePrompt(*cur, location, climate)),
	})
	if err != nil {
		return "", err
	}
	normalized, err := weather.NormalizeAdviceHTML(text)
	if err != nil {
		s.logger.Warn("failed to normalize advice html", zap.Error(err))
	}
	return normalized, nil
}

func (s *Service) complete(ctx context.Context, mode string, history []models.Message) (string, error) {
	msgs := make([]llms.MessageContent, 0, len(history)+1)
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, SystemPrompt(mode, s.cfg.Climate)))
	msgs = append(msgs, toContent(history)...)
	return s.generate(ctx, mode, msgs)
}

func (s *Service) generate(ctx context.Context, label string, msgs []llms.MessageContent) (string, error) {
	if s.model == nil {
		return "", ErrModelUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.model.GenerateContent(ctx, msgs, llms.WithMaxTokens(s.cfg.MaxTokens))
	if err == nil && (resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "") {
		err = errors.New("empty completion")
	}
	metrics.LLMDuration.WithLabelValues(label, metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("failed to generate completion", zap.String("mode", label), zap.Error(err))
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func toContent(history []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		mc := llms.MessageContent{Role: chatRole(m.Role)}
		if m.Content != "" {
			mc.Parts = append(mc.Parts, llms.TextContent{Text: m.Content})
		}
		for _, img := range m.Images {
			mc.Parts = append(mc.Parts, llms.ImageURLPart(img))
		}
		out = append(out, mc)
	}
	return out
}

func chatRole(r models.Role) schema.ChatMessageType {
	switch r {
	case models.RoleSystem:
		return schema.ChatMessageTypeSystem
	case models.RoleAssistant:
		return schema.ChatMessageTypeAI
	}
	return schema.ChatMessageTypeHuman
}
