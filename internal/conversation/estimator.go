package conversation

import (
	"fmt"
	"strings"

	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// ImageTokens is the flat cost charged for each image reference.
	ImageTokens = 100

	charsPerToken      = 4
	perMessageOverhead = 4
)

// Estimator approximates how many prompt tokens a message costs.
type Estimator interface {
	Estimate(msg models.Message) int
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(msg models.Message) int

func (f EstimatorFunc) Estimate(msg models.Message) int { return f(msg) }

// CharEstimator charges one token per four characters plus a small per-message overhead.
type CharEstimator struct{}

func (CharEstimator) Estimate(msg models.Message) int {
	n := len(msg.Role) + len(msg.Content)
	return (n+charsPerToken-1)/charsPerToken + perMessageOverhead + len(msg.Images)*ImageTokens
}

// WordEstimator charges 4 tokens per 3 words.
type WordEstimator struct{}

func (WordEstimator) Estimate(msg models.Message) int {
	words := len(strings.Fields(msg.Content)) + 1 // role
	return (words*4+2)/3 + perMessageOverhead + len(msg.Images)*ImageTokens
}

// TiktokenEstimator counts tokens with the model's BPE encoding.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator(model string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding for %s: %w", model, err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (t *TiktokenEstimator) Estimate(msg models.Message) int {
	n := len(t.enc.Encode(string(msg.Role), nil, nil))
	n += len(t.enc.Encode(msg.Content, nil, nil))
	return n + len(msg.Images)*ImageTokens
}

// NewEstimator resolves an estimator by name: "chars", "words" or "tiktoken".
func NewEstimator(kind, model string) (Estimator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "chars":
		return CharEstimator{}, nil
	case "words":
		return WordEstimator{}, nil
	case "tiktoken":
		return NewTiktokenEstimator(model)
	default:
		return nil, fmt.Errorf("unknown token estimator %q", kind)
	}
}
