package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/RichardoC/gardenllm/internal/conversation"
	"github.com/RichardoC/gardenllm/internal/llm"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/RichardoC/gardenllm/internal/plants"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRepo []models.Plant

func (r staticRepo) All(context.Context) ([]models.Plant, error) { return r, nil }

func (r staticRepo) Find(_ context.Context, names ...string) ([]models.Plant, error) {
	return plants.Filter(r, names...), nil
}

func (r staticRepo) Upsert(_ context.Context, p models.Plant) (models.Plant, error) { return p, nil }

func (r staticRepo) UpdateField(context.Context, string, string, string) error { return nil }

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "chat", "plants", "weather"} {
		assert.True(t, names[want], want)
	}
}

func TestChatLoop(t *testing.T) {
	store := conversation.NewStore(conversation.DefaultConfig())
	repo := staticRepo{{ID: "1", Name: "Sweet Basil", Location: "Herb spiral"}}
	chat := llm.New(nil, store, llm.Config{}, llm.WithPlants(repo))

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("Where is the basil?\n/mode database\nWhere is the mint?\nexit\n"))
	var out bytes.Buffer

	require.NoError(t, chatLoop(cmd, chat, models.ModeGeneral, &out))
	text := out.String()
	assert.Contains(t, text, "The Sweet Basil is located in the Herb spiral.")
	assert.Contains(t, text, "Switched from general to database")
	assert.Contains(t, text, "I couldn't find any plants matching")
	assert.Equal(t, 1, store.Len())
}
