// Package llm is an example plugin-contributed node family: a chat
// completion call against an OpenAI-compatible API, registered via
// registry.RegisterFromPlugin like any other node source. It exists to
// demonstrate the shape of a plugin contribution, not as a maintained LLM
// integration surface.
package llm

import (
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// Category is the registry category this plugin's definitions register
// under.
const Category = "plugin.llm"

// Plugin adapts a preconfigured client into a registry.Source, so a host
// can register it with reg.RegisterFromPlugin(llm.Plugin{APIKey: "..."}).
type Plugin struct {
	// APIKey authenticates with the chat completion API. Empty falls back
	// to the OPENAI_API_KEY environment variable, resolved lazily per call
	// rather than at plugin construction, so a missing key only fails the
	// node that actually needs it.
	APIKey string

	// BaseURL overrides the API endpoint, for OpenAI-compatible providers.
	BaseURL string
}

// Definitions implements registry.Source.
func (p Plugin) Definitions() []*node.Definition {
	return []*node.Definition{chatCompletionDef(p)}
}

func (p Plugin) client() (*openai.Client, error) {
	key := p.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("plugin/llm: no API key configured (set Plugin.APIKey or OPENAI_API_KEY)")
	}
	if p.BaseURL == "" {
		return openai.NewClient(key), nil
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = p.BaseURL
	return openai.NewClientWithConfig(cfg), nil
}

// chatCompletionDef is a Callable node: given a system prompt, a user
// prompt, and a model name, it calls the chat completion endpoint once and
// publishes the first choice's message content.
func chatCompletionDef(p Plugin) *node.Definition {
	return registry.NewBuilder("Chat Completion", Category, "Calls an OpenAI-compatible chat completion endpoint").
		ID("plugin.llm.chat_completion").
		Callable().
		Input(node.DataSocketWithDefault("Model", "string", socket.MustFromValue(openai.GPT4oMini))).
		Input(node.DataSocket("SystemPrompt", "string", true)).
		Input(node.DataSocket("Prompt", "string", true)).
		Output(node.DataSocket("Response", "string", false)).
		Executor(func(ctx node.ExecContext) error {
			client, err := p.client()
			if err != nil {
				return err
			}

			modelVal, err := ctx.GetInput("Model")
			if err != nil {
				return err
			}
			model, err := socket.To[string](modelVal)
			if err != nil {
				return err
			}

			systemVal, err := ctx.GetInput("SystemPrompt")
			if err != nil {
				return err
			}
			system, err := socket.To[string](systemVal)
			if err != nil {
				return err
			}

			promptVal, err := ctx.GetInput("Prompt")
			if err != nil {
				return err
			}
			prompt, err := socket.To[string](promptVal)
			if err != nil {
				return err
			}

			messages := make([]openai.ChatCompletionMessage, 0, 2)
			if system != "" {
				messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

			resp, err := client.CreateChatCompletion(ctx.Context(), openai.ChatCompletionRequest{
				Model:    model,
				Messages: messages,
			})
			if err != nil {
				return fmt.Errorf("plugin/llm: chat completion request failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("plugin/llm: chat completion returned no choices")
			}

			out, err := socket.FromValue(resp.Choices[0].Message.Content)
			if err != nil {
				return err
			}
			ctx.SetOutput("Response", out)
			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}
