package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/conversation"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	"github.com/RichardoC/gardenllm/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	mu    sync.Mutex
	calls [][]llms.MessageContent
	reply string
	err   error
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) last() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type fakeRepo struct {
	plants []models.Plant
	err    error
}

func (r *fakeRepo) All(context.Context) ([]models.Plant, error) {
	return r.plants, r.err
}

func (r *fakeRepo) Find(_ context.Context, names ...string) ([]models.Plant, error) {
	if r.err != nil {
		return nil, r.err
	}
	return plants.Filter(r.plants, names...), nil
}

func (r *fakeRepo) Upsert(_ context.Context, p models.Plant) (models.Plant, error) {
	return p, nil
}

func (r *fakeRepo) UpdateField(context.Context, string, string, string) error {
	return nil
}

type fakeWeather struct {
	current *weather.Current
	err     error
}

func (w *fakeWeather) Messages(context.Context) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Category: models.CategoryWeatherCurrent, Content: "Current weather in Houston: 91°F."},
		{Role: models.RoleSystem, Category: models.CategoryWeatherForecast, Content: "Forecast: 60% chance of rain at Tue 03 PM."},
	}
}

func (w *fakeWeather) Current(context.Context) (*weather.Current, error) {
	return w.current, w.err
}

func garden() *fakeRepo {
	return &fakeRepo{plants: []models.Plant{
		{ID: "1", Name: "Cherry Tomato", Location: "Back bed", WateringNeeds: "Daily", RawPhotoURL: "https://example.com/t.jpg"},
		{ID: "2", Name: "Peggy Martin Rose", Location: "Front fence", RawPhotoURL: "https://photos.google.com/photo/abc?key=1"},
		{ID: "3", Name: "Sweet Basil", Location: "Herb spiral"},
	}}
}

func newTestService(t *testing.T, model llms.Model, cfg Config, opts ...Option) (*Service, *conversation.Store) {
	t.Helper()
	store := conversation.NewStore(conversation.DefaultConfig())
	if cfg.Climate == nil {
		cfg.Climate = config.DefaultClimate()
	}
	return New(model, store, cfg, opts...), store
}

func text(mc llms.MessageContent) string {
	var parts []string
	for _, p := range mc.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "")
}

func TestChat_GeneralConversation(t *testing.T) {
	model := &fakeModel{reply: "Mulch keeps the roots cool."}
	svc, store := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "How do I keep soil moist in summer?"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, models.ModeGeneral, resp.Mode)
	assert.Equal(t, "Mulch keeps the roots cool.", resp.Response)
	assert.Equal(t, len("Mulch keeps the roots cool."), resp.Length)

	msgs := model.last()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, msgs[0].Role)
	assert.Contains(t, text(msgs[0]), "gardening assistant")
	assert.Contains(t, text(msgs[0]), "Hardiness Zone: 9a/9b")
	assert.Equal(t, schema.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, "How do I keep soil moist in summer?", text(msgs[1]))

	history := store.Messages(resp.ConversationID)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, models.RoleAssistant, history[1].Role)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: "And in winter?", ConversationID: resp.ConversationID})
	require.NoError(t, err)
	assert.Len(t, model.last(), 4)
	assert.Len(t, store.Messages(resp.ConversationID), 4)
}

func TestChat_LocationAnsweredFromRecords(t *testing.T) {
	model := &fakeModel{}
	svc, store := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "Where is the basil?", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "The Sweet Basil is located in the Herb spiral.", resp.Response)
	assert.Empty(t, model.calls)
	assert.Len(t, store.Messages("c1"), 2)
}

func TestChat_PhotoAnsweredFromRecords(t *testing.T) {
	model := &fakeModel{}
	svc, _ := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "What does a rose look like"})
	require.NoError(t, err)
	assert.Equal(t, "Here's what Peggy Martin Rose looks like:\nhttps://photos.google.com/photo/abc?authuser=0", resp.Response)
	assert.Empty(t, model.calls)
}

func TestChat_PlantInfoGoesToModelWithRecords(t *testing.T) {
	model := &fakeModel{reply: "Tomatoes love sun."}
	svc, store := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "Tell me about tomatoes", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Tomatoes love sun.\n\nYou can see a photo of Cherry Tomato here: https://example.com/t.jpg", resp.Response)

	msgs := model.last()
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.ChatMessageTypeSystem, msgs[1].Role)
	assert.Contains(t, text(msgs[1]), "Plant Name: Cherry Tomato")
	assert.Contains(t, text(msgs[1]), "Watering Needs: Daily")
	assert.NotContains(t, text(msgs[1]), "example.com")

	history := store.Messages("c1")
	require.Len(t, history, 3)
	assert.Equal(t, models.CategoryPlantData, history[0].Category)
}

func TestChat_ListsAllPlants(t *testing.T) {
	model := &fakeModel{reply: "You grow three plants."}
	svc, _ := newTestService(t, model, Config{}, WithPlants(garden()))

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "What plants do I have?"})
	require.NoError(t, err)
	assert.Contains(t, text(model.last()[1]), "The following plants are in the garden: Cherry Tomato, Peggy Martin Rose, Sweet Basil.")

	empty, _ := newTestService(t, model, Config{}, WithPlants(&fakeRepo{}))
	resp, err := empty.Chat(context.Background(), ChatRequest{Message: "What plants do I have?"})
	require.NoError(t, err)
	assert.Equal(t, "There are currently no plants in the database.", resp.Response)
}

func TestChat_UnknownPlant(t *testing.T) {
	model := &fakeModel{reply: "Okra likes heat."}
	svc, _ := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "Tell me about okra", Mode: models.ModeDatabase})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find any plants matching 'okra' in the database.", resp.Response)
	assert.Empty(t, model.calls)

	resp, err = svc.Chat(context.Background(), ChatRequest{Message: "Tell me about okra"})
	require.NoError(t, err)
	assert.Equal(t, "Okra likes heat.", resp.Response)
}

func TestChat_PlantLookupFailureFallsBackToModel(t *testing.T) {
	model := &fakeModel{reply: "Basil needs sun."}
	svc, _ := newTestService(t, model, Config{}, WithPlants(&fakeRepo{err: errors.New("sheet offline")}))

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "Tell me about basil"})
	require.NoError(t, err)
	assert.Equal(t, "Basil needs sun.", resp.Response)
}

func TestChat_WeatherContext(t *testing.T) {
	model := &fakeModel{reply: "Hold off on watering."}
	w := &fakeWeather{}
	svc, store := newTestService(t, model, Config{}, WithWeather(w, w))

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "Hello there", ConversationID: "quiet"})
	require.NoError(t, err)
	assert.Len(t, store.Messages("quiet"), 2)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: "Will it rain tomorrow?", ConversationID: "wet"})
	require.NoError(t, err)
	history := store.Messages("wet")
	require.Len(t, history, 4)
	assert.Equal(t, models.CategoryWeatherCurrent, history[0].Category)
	assert.Equal(t, models.CategoryWeatherForecast, history[1].Category)

	aware, awareStore := newTestService(t, model, Config{WeatherAware: true}, WithWeather(w, w))
	_, err = aware.Chat(context.Background(), ChatRequest{Message: "Hello there", ConversationID: "c"})
	require.NoError(t, err)
	assert.Len(t, awareStore.Messages("c"), 4)

	for i := 0; i < 3; i++ {
		_, err = aware.Chat(context.Background(), ChatRequest{Message: "Hello again", ConversationID: "c"})
		require.NoError(t, err)
	}
	current := 0
	for _, m := range awareStore.Messages("c") {
		if m.Category == models.CategoryWeatherCurrent {
			current++
		}
	}
	assert.Equal(t, conversation.DefaultMaxPerCategory, current)
}

func TestChat_ImageAnalysis(t *testing.T) {
	model := &fakeModel{reply: "That looks like a hibiscus with aphids."}
	svc, _ := newTestService(t, model, Config{}, WithPlants(garden()))

	resp, err := svc.Chat(context.Background(), ChatRequest{ImageURL: "https://example.com/leaf.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.ModeImageAnalysis, resp.Mode)

	msgs := model.last()
	assert.Contains(t, text(msgs[0]), "plant identification")
	userMsg := msgs[len(msgs)-1]
	require.Len(t, userMsg.Parts, 1)
	img, ok := userMsg.Parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/leaf.jpg", img.URL)
}

func TestChat_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{}, Config{})

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, conversation.ErrInvalidInput)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: "hi", Mode: "poetry"})
	assert.ErrorIs(t, err, conversation.ErrInvalidInput)
}

func TestChat_ModelFailures(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{err: errors.New("rate limited")}, Config{})
	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	noModel, _ := newTestService(t, nil, Config{}, WithPlants(garden()))
	_, err = noModel.Chat(context.Background(), ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrModelUnavailable)

	resp, err := noModel.Chat(context.Background(), ChatRequest{Message: "Where is the basil?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "Herb spiral")
}

func TestChat_FailedTurnLeavesHistoryUnchanged(t *testing.T) {
	model := &fakeModel{reply: "Water at dawn."}
	svc, store := newTestService(t, model, Config{}, WithPlants(garden()))

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "How often should I water?", ConversationID: "c1"})
	require.NoError(t, err)
	before := store.Messages("c1")
	require.Len(t, before, 2)

	model.err = errors.New("rate limited")
	_, err = svc.Chat(context.Background(), ChatRequest{Message: "Tell me about the basil", ConversationID: "c1"})
	require.Error(t, err)
	assert.Equal(t, before, store.Messages("c1"))

	model.err = nil
	model.reply = "Basil likes sun."
	_, err = svc.Chat(context.Background(), ChatRequest{Message: "Tell me about the basil", ConversationID: "c1"})
	require.NoError(t, err)

	var roles []models.Role
	for _, m := range store.Messages("c1") {
		if m.Role != models.RoleSystem {
			roles = append(roles, m.Role)
		}
	}
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleAssistant, models.RoleUser, models.RoleAssistant}, roles)

	humans := 0
	for _, mc := range model.last() {
		if mc.Role == schema.ChatMessageTypeHuman {
			humans++
		}
	}
	assert.Equal(t, 2, humans)
	last := model.last()
	assert.Equal(t, "Tell me about the basil", text(last[len(last)-1]))

	noModel, noModelStore := newTestService(t, nil, Config{})
	_, err = noModel.Chat(context.Background(), ChatRequest{Message: "hi", ConversationID: "c2"})
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Empty(t, noModelStore.Messages("c2"))
}

func TestChat_CountsSections(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{reply: "### Water\nDeeply\n### Feed\nMonthly"}, Config{})
	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Sections)
}

func TestSwitchMode(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	model := &fakeModel{reply: "Water tomatoes at the base."}
	svc, store := newTestService(t, model, Config{}, WithClock(func() time.Time { return now }))

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "How should I water my tomatoes?", ConversationID: "c1"})
	require.NoError(t, err)

	tr, err := svc.SwitchMode("c1", models.ModeDatabase)
	require.NoError(t, err)
	assert.Equal(t, "c1", tr.ConversationID)
	assert.Equal(t, models.ModeGeneral, tr.PreviousMode)
	assert.Equal(t, models.ModeDatabase, tr.NewMode)
	assert.Contains(t, tr.SystemPrompt, "garden database")
	assert.Contains(t, tr.ContextSummary, "Previous mode: general")
	assert.Contains(t, tr.ContextSummary, "tomato")
	assert.Contains(t, tr.RecentTopics, "water")
	assert.Equal(t, now, tr.Timestamp)

	conv, ok := store.Snapshot("c1")
	require.True(t, ok)
	assert.Equal(t, models.ModeDatabase, conv.Mode)
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, models.CategoryInstructions, last.Category)
	assert.True(t, strings.HasPrefix(last.Content, "Mode changed from general to database."))

	_, err = svc.SwitchMode("missing", models.ModeDatabase)
	assert.ErrorIs(t, err, ErrUnknownConversation)
	_, err = svc.SwitchMode("c1", "poetry")
	assert.ErrorIs(t, err, conversation.ErrInvalidInput)
}

func TestChat_ModeChangeSwitchesConversation(t *testing.T) {
	svc, store := newTestService(t, &fakeModel{reply: "ok"}, Config{})

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hi", ConversationID: "c1"})
	require.NoError(t, err)
	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "now from the records", ConversationID: "c1", Mode: models.ModeDatabase})
	require.NoError(t, err)
	assert.Equal(t, models.ModeDatabase, resp.Mode)

	conv, _ := store.Snapshot("c1")
	assert.Equal(t, models.ModeDatabase, conv.Mode)

	resp, err = svc.Chat(context.Background(), ChatRequest{Message: "and again", ConversationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, models.ModeDatabase, resp.Mode)
}

func TestPlantCareAdvice(t *testing.T) {
	model := &fakeModel{reply: "<h4>Watering</h4><ul><li>Water early</li></ul>"}
	w := &fakeWeather{current: &weather.Current{Temperature: 96, Humidity: 70, Description: "clear sky"}}
	svc, _ := newTestService(t, model, Config{}, WithWeather(w, w))

	advice, err := svc.PlantCareAdvice(context.Background())
	require.NoError(t, err)
	assert.Contains(t, advice, `<h4 class="`)
	assert.Contains(t, advice, `<li class="`)
	assert.Contains(t, text(model.last()[1]), "- Temperature: 96°F")

	w.err = weather.ErrUnavailable
	_, err = svc.PlantCareAdvice(context.Background())
	assert.ErrorIs(t, err, weather.ErrUnavailable)

	bare, _ := newTestService(t, model, Config{})
	_, err = bare.PlantCareAdvice(context.Background())
	assert.ErrorIs(t, err, weather.ErrUnavailable)
}

func TestSystemPrompt(t *testing.T) {
	climate := config.DefaultClimate()

	assert.Contains(t, strings.ToLower(SystemPrompt(models.ModeDatabase, climate)), "garden database")
	assert.Contains(t, strings.ToLower(SystemPrompt(models.ModeImageAnalysis, climate)), "plant identification")
	assert.Contains(t, SystemPrompt(models.ModeGeneral, climate), "gardening assistant for a garden in Houston, TX, USA")
	assert.Equal(t, SystemPrompt(models.ModeGeneral, climate), SystemPrompt("", climate))
	assert.NotContains(t, SystemPrompt(models.ModeGeneral, nil), "Local climate")
}
