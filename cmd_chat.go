package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/RichardoC/gardenllm/internal/llm"
	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the garden assistant",
	Long: `Send one message, or start an interactive session when no message is given.

An interactive session keeps a single conversation until you type "exit".
Type "/mode <general|database|image_analysis>" to switch modes mid session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("mode", "m", models.ModeGeneral, "Conversation mode (general, database, image_analysis)")
	chatCmd.Flags().String("image", "", "Image URL to analyze with the message")
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	image, _ := cmd.Flags().GetString("image")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		resp, err := a.Chat.Chat(ctx, llm.ChatRequest{
			Message:  strings.Join(args, " "),
			Mode:     mode,
			ImageURL: image,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp.Response)
		return nil
	}

	return chatLoop(cmd, a.Chat, mode, out)
}

func chatLoop(cmd *cobra.Command, chat *llm.Service, mode string, out io.Writer) error {
	ctx := commandContext(cmd)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var id string

	fmt.Fprintf(out, "GardenLLM (%s mode). Type \"exit\" to quit.\n", mode)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/mode "):
			next := strings.TrimSpace(strings.TrimPrefix(line, "/mode "))
			if id == "" {
				mode = next
				fmt.Fprintf(out, "Mode set to %s\n", mode)
				continue
			}
			t, err := chat.SwitchMode(id, next)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			mode = t.NewMode
			fmt.Fprintf(out, "Switched from %s to %s\n", t.PreviousMode, t.NewMode)
			continue
		}

		resp, err := chat.Chat(ctx, llm.ChatRequest{Message: line, ConversationID: id, Mode: mode})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		id = resp.ConversationID
		fmt.Fprintln(out, resp.Response)
	}
}
