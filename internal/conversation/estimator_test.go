package conversation

import (
	"testing"

	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharEstimator(t *testing.T) {
	e := CharEstimator{}

	// "user" + "Hello" = 9 chars -> 3 tokens + overhead
	assert.Equal(t, 7, e.Estimate(user("Hello")))
	assert.Equal(t, 1000, e.Estimate(user(sized(models.RoleUser, "", 1000))))

	withImage := models.Message{Role: models.RoleUser, Content: "Hello", Images: []string{"a.jpg", "b.jpg"}}
	assert.Equal(t, 7+2*ImageTokens, e.Estimate(withImage))
}

func TestWordEstimator(t *testing.T) {
	e := WordEstimator{}

	// 3 words + role -> 16/3 rounded -> 6, plus overhead
	assert.Equal(t, 10, e.Estimate(user("water the basil")))
	assert.Greater(t, e.Estimate(user("water the basil every morning")), e.Estimate(user("water the basil")))
}

func TestEstimatorFunc(t *testing.T) {
	fixed := EstimatorFunc(func(models.Message) int { return 42 })
	assert.Equal(t, 42, fixed.Estimate(user("anything")))

	s := NewStore(Config{MaxTokens: 100}, WithEstimator(fixed))
	require.NoError(t, s.Append("f", user("one")))
	require.NoError(t, s.Append("f", user("two")))
	require.NoError(t, s.Append("f", user("three")))
	assert.Equal(t, 84, s.Tokens("f"))
	assert.Len(t, s.Messages("f"), 2)
}

func TestNewEstimator(t *testing.T) {
	e, err := NewEstimator("", "")
	require.NoError(t, err)
	assert.IsType(t, CharEstimator{}, e)

	e, err = NewEstimator("Words", "")
	require.NoError(t, err)
	assert.IsType(t, WordEstimator{}, e)

	_, err = NewEstimator("bytes", "")
	assert.Error(t, err)
}
