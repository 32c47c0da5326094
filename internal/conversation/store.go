// Package conversation keeps short-lived chat histories in memory.
//
// A Store holds one ordered message log per conversation id. Logs are
// trimmed to a token budget on every append and expire after a period of
// inactivity. Nothing is persisted; a restart starts from an empty store.
package conversation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/gardenllm/internal/metrics"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultTimeout        = 30 * time.Minute
	DefaultMaxTokens      = 4096
	DefaultTokenBuffer    = 512
	DefaultMaxPerCategory = 2
)

// Config bounds every conversation held by a Store.
// Zero Timeout, MaxTokens and MaxPerCategory fall back to the defaults.
// TokenBuffer is used as given; the trimming budget is MaxTokens - TokenBuffer.
type Config struct {
	Timeout        time.Duration
	MaxTokens      int
	TokenBuffer    int
	MaxPerCategory int
}

func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		MaxTokens:      DefaultMaxTokens,
		TokenBuffer:    DefaultTokenBuffer,
		MaxPerCategory: DefaultMaxPerCategory,
	}
}

type Option func(*Store)

func WithEstimator(e Estimator) Option {
	return func(s *Store) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type entry struct {
	conv  models.Conversation
	costs []int
	total int
}

// Store is safe for concurrent use. A single mutex serializes all operations.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*entry

	cfg       Config
	estimator Estimator
	now       func() time.Time
	logger    *zap.Logger

	sweep sweeper
}

func NewStore(cfg Config, opts ...Option) *Store {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.TokenBuffer < 0 || cfg.TokenBuffer >= cfg.MaxTokens {
		cfg.TokenBuffer = 0
	}
	if cfg.MaxPerCategory <= 0 {
		cfg.MaxPerCategory = DefaultMaxPerCategory
	}

	s := &Store{
		conversations: make(map[string]*entry),
		cfg:           cfg,
		estimator:     CharEstimator{},
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Budget is the largest estimated token total a conversation may hold.
func (s *Store) Budget() int {
	return s.cfg.MaxTokens - s.cfg.TokenBuffer
}

func (s *Store) Timeout() time.Duration {
	return s.cfg.Timeout
}

func (s *Store) NewID() string {
	return uuid.NewString()
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	return nil
}

func validateMessage(msg models.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" && len(msg.Images) == 0 {
		return fmt.Errorf("%w: message content is empty", ErrInvalidInput)
	}
	return nil
}

// Append adds msg to the conversation, creating it if it is absent or expired.
// The history is then trimmed to the category limit and the token budget;
// msg itself is never trimmed.
func (s *Store) Append(id string, msg models.Message) error {
	return s.AppendTurn(id, msg)
}

// AppendTurn appends msgs in order as one unit: either all of them are
// validated and stored under a single lock, or none is.
func (s *Store) AppendTurn(id string, msgs ...models.Message) error {
	prepared, costs, err := s.prepare(id, msgs)
	if err != nil || len(prepared) == 0 {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.lookup(id, now)
	if e == nil {
		e = s.create(id, now)
	}
	for i, msg := range prepared {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		capped, trimmed := s.push(e, msg, costs[i])
		s.recordTrim(e, capped, trimmed)
		s.logger.Debug("appended message",
			zap.String("conversation_id", id),
			zap.String("role", string(msg.Role)),
			zap.Int("messages", len(e.conv.Messages)),
			zap.Int("tokens", e.total))
	}
	e.conv.LastActivity = now
	return nil
}

// Draft returns the history as it would be after appending pending, with the
// category limit and token budget applied, without changing the store.
func (s *Store) Draft(id string, pending ...models.Message) ([]models.Message, error) {
	prepared, costs, err := s.prepare(id, pending)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	scratch := &entry{conv: models.Conversation{ID: id, Messages: []models.Message{}}}
	if e := s.lookup(id, now); e != nil {
		scratch.conv.Mode = e.conv.Mode
		scratch.conv.Messages = copyMessages(e.conv.Messages)
		scratch.costs = append([]int(nil), e.costs...)
		scratch.total = e.total
	}
	for i, msg := range prepared {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		s.push(scratch, msg, costs[i])
	}
	return scratch.conv.Messages, nil
}

// prepare validates msgs and estimates their costs outside the lock.
func (s *Store) prepare(id string, msgs []models.Message) ([]models.Message, []int, error) {
	if err := validateID(id); err != nil {
		return nil, nil, err
	}
	prepared := make([]models.Message, 0, len(msgs))
	costs := make([]int, 0, len(msgs))
	for _, msg := range msgs {
		if err := validateMessage(msg); err != nil {
			return nil, nil, err
		}
		if msg.Role != models.RoleSystem {
			msg.Category = ""
		}
		msg.Images = append([]string(nil), msg.Images...)
		prepared = append(prepared, msg)
		costs = append(costs, s.estimator.Estimate(msg))
	}
	return prepared, costs, nil
}

// push appends msg to e and trims it, returning how many messages the
// category limit and the token budget removed.
func (s *Store) push(e *entry, msg models.Message, cost int) (capped, trimmed int) {
	if e.conv.Mode == "" && msg.Mode != "" {
		e.conv.Mode = msg.Mode
	}
	e.conv.Messages = append(e.conv.Messages, msg)
	e.costs = append(e.costs, cost)
	e.total += cost

	if msg.Role == models.RoleSystem {
		capped = s.capCategory(e, msg.Category)
	}
	return capped, s.enforceBudget(e)
}

func (s *Store) recordTrim(e *entry, capped, trimmed int) {
	if capped > 0 {
		metrics.MessagesTrimmed.WithLabelValues("category").Add(float64(capped))
	}
	if trimmed > 0 {
		metrics.MessagesTrimmed.WithLabelValues("budget").Add(float64(trimmed))
		s.logger.Debug("trimmed conversation to token budget",
			zap.String("conversation_id", e.conv.ID),
			zap.Int("dropped", trimmed),
			zap.Int("tokens", e.total),
			zap.Int("budget", s.Budget()))
	}
}

// Messages returns a copy of the stored history in append order. Unknown and
// expired ids yield an empty slice. Reading does not extend the idle timeout.
func (s *Store) Messages(id string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(id, s.now())
	if e == nil {
		return []models.Message{}
	}
	return copyMessages(e.conv.Messages)
}

// IsExpired reports whether id is unknown or idle for longer than the timeout.
func (s *Store) IsExpired(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.conversations[id]
	if !ok {
		return true
	}
	return s.expired(e, s.now())
}

// EvictExpired removes every expired conversation and returns how many were removed.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.conversations {
		if s.expired(e, now) {
			delete(s.conversations, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ConversationsEvicted.WithLabelValues("expired").Add(float64(removed))
		metrics.ConversationsActive.Sub(float64(removed))
		s.logger.Info("evicted expired conversations",
			zap.Int("count", removed),
			zap.Int("remaining", len(s.conversations)))
	}
	return removed
}

// Create starts an empty conversation carrying mode and metadata. On an active
// conversation it updates the mode and merges the metadata instead.
func (s *Store) Create(id, mode string, metadata map[string]string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.lookup(id, now)
	if e == nil {
		e = s.create(id, now)
	}
	if mode != "" {
		e.conv.Mode = mode
	}
	for k, v := range metadata {
		if e.conv.Metadata == nil {
			e.conv.Metadata = make(map[string]string, len(metadata))
		}
		e.conv.Metadata[k] = v
	}
	e.conv.LastActivity = now
	return nil
}

// Clear drops a conversation regardless of its state.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	metrics.ConversationsEvicted.WithLabelValues("cleared").Inc()
	metrics.ConversationsActive.Dec()
	return true
}

// SetMode switches the mode of an active conversation and returns the previous one.
func (s *Store) SetMode(id, mode string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.lookup(id, now)
	if e == nil {
		return "", false
	}
	prev := e.conv.Mode
	e.conv.Mode = mode
	e.conv.LastActivity = now
	return prev, true
}

// Snapshot returns a deep copy of an active conversation.
func (s *Store) Snapshot(id string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(id, s.now())
	if e == nil {
		return models.Conversation{}, false
	}
	return copyConversation(e.conv), true
}

// List returns copies of all active conversations, most recently active first.
func (s *Store) List() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, e := range s.conversations {
		if s.expired(e, now) {
			continue
		}
		out = append(out, copyConversation(e.conv))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Tokens returns the estimated cost of the stored history.
func (s *Store) Tokens(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(id, s.now())
	if e == nil {
		return 0
	}
	return e.total
}

// Len counts stored conversations, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Preview summarizes a conversation for history listings.
func (s *Store) Preview(id string) Preview {
	conv, ok := s.Snapshot(id)
	if !ok {
		conv = models.Conversation{ID: id}
	}
	return BuildPreview(conv)
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return now.Sub(e.conv.LastActivity) > s.cfg.Timeout
}

// lookup returns the active entry for id, deleting it if it has expired.
// Callers must hold s.mu.
func (s *Store) lookup(id string, now time.Time) *entry {
	e, ok := s.conversations[id]
	if !ok {
		return nil
	}
	if s.expired(e, now) {
		delete(s.conversations, id)
		metrics.ConversationsEvicted.WithLabelValues("expired").Inc()
		metrics.ConversationsActive.Dec()
		s.logger.Debug("conversation expired", zap.String("conversation_id", id))
		return nil
	}
	return e
}

func (s *Store) create(id string, now time.Time) *entry {
	e := &entry{conv: models.Conversation{
		ID:           id,
		Messages:     []models.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}}
	s.conversations[id] = e
	metrics.ConversationsActive.Inc()
	s.logger.Info("created conversation", zap.String("conversation_id", id))
	return e
}

// capCategory keeps only the newest MaxPerCategory system messages of category.
func (s *Store) capCategory(e *entry, category string) int {
	var idx []int
	for i, m := range e.conv.Messages {
		if m.Role == models.RoleSystem && m.Category == category {
			idx = append(idx, i)
		}
	}
	excess := len(idx) - s.cfg.MaxPerCategory
	if excess <= 0 {
		return 0
	}
	e.removeAt(idx[:excess]...)
	return excess
}

// enforceBudget drops the oldest conversational turns until the history fits.
// A user message goes together with the assistant reply that follows it, so
// no reply is left without its question. The newest message always survives,
// even when that means keeping a reply without its question or exceeding the
// budget on its own. System messages are only dropped once no other message
// is left to drop.
func (s *Store) enforceBudget(e *entry) int {
	budget := s.Budget()
	dropped := 0

	for e.total > budget {
		msgs := e.conv.Messages
		last := len(msgs) - 1
		i := -1
		for k := 0; k < last; k++ {
			if msgs[k].Role != models.RoleSystem {
				i = k
				break
			}
		}
		if i < 0 {
			break
		}
		drop := []int{i}
		if msgs[i].Role == models.RoleUser {
			for k := i + 1; k < last; k++ {
				if msgs[k].Role == models.RoleSystem {
					continue
				}
				if msgs[k].Role == models.RoleAssistant {
					drop = append(drop, k)
				}
				break
			}
		}
		e.removeAt(drop...)
		dropped += len(drop)
	}

	for e.total > budget {
		last := len(e.conv.Messages) - 1
		i := -1
		for k := 0; k < last; k++ {
			if e.conv.Messages[k].Role == models.RoleSystem {
				i = k
				break
			}
		}
		if i < 0 {
			break
		}
		e.removeAt(i)
		dropped++
	}

	return dropped
}

// removeAt deletes the given indices, preserving the order of the rest.
func (e *entry) removeAt(indices ...int) {
	skip := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		skip[i] = struct{}{}
	}
	msgs := e.conv.Messages[:0]
	costs := e.costs[:0]
	for i, m := range e.conv.Messages {
		if _, ok := skip[i]; ok {
			e.total -= e.costs[i]
			continue
		}
		msgs = append(msgs, m)
		costs = append(costs, e.costs[i])
	}
	e.conv.Messages = msgs
	e.costs = costs
}

func copyMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		m.Images = append([]string(nil), m.Images...)
		out[i] = m
	}
	return out
}

func copyConversation(c models.Conversation) models.Conversation {
	c.Messages = copyMessages(c.Messages)
	if c.Metadata != nil {
		md := make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			md[k] = v
		}
		c.Metadata = md
	}
	return c
}

// ContextSummary is the one-line preview handed to the model when a
// conversation changes mode.
func (s *Store) ContextSummary(id string, maxLen int) string {
	return s.Preview(id).ContextLine(maxLen)
}
