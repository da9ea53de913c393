// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"workbench/internal/agent"
	systemprompt "workbench/system_prompt"
)

const (
	DefaultModel  = "gpt-4o-mini"
	DefaultAPIURL = "https://api.openai.com/v1"
)

// Options configures a ChatSource.
type Options struct {
	Model       string
	APIURL      string
	APIKey      string
	Temperature *float32
	MaxTokens   *int
}

// ChatSource asks an OpenAI-compatible chat backend for the next instruction.
type ChatSource struct {
	client       ChatClient
	opts         Options
	systemPrompt string
}

// NewOpenAIClient creates a client for the configured endpoint.
func NewOpenAIClient(opts Options) *openai.Client {
	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.APIURL != "" {
		clientConfig.BaseURL = opts.APIURL
		clientConfig.HTTPClient = &http.Client{}
	}
	return openai.NewClientWithConfig(clientConfig)
}

// NewChatSource creates a source over client. capabilities is the rendered
// capability list placed in the system prompt.
func NewChatSource(client ChatClient, opts Options, capabilities string) (*ChatSource, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	prompt, err := systemprompt.Render(capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}
	return &ChatSource{
		client:       client,
		opts:         opts,
		systemPrompt: prompt,
	}, nil
}

// SystemPrompt returns the rendered system prompt.
func (s *ChatSource) SystemPrompt() string {
	return s.systemPrompt
}

// Next implements agent.InstructionSource.
func (s *ChatSource) Next(ctx context.Context, turns []agent.Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    s.opts.Model,
		Messages: s.Messages(turns),
	}
	if s.opts.Temperature != nil {
		req.Temperature = *s.opts.Temperature
	}
	if s.opts.MaxTokens != nil {
		req.MaxTokens = *s.opts.MaxTokens
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &APIError{Operation: "create_completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Messages converts a transcript into chat messages. Capability results are
// sent as user messages since the controller speaks plain JSON, not tool calls.
func (s *ChatSource) Messages(turns []agent.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.systemPrompt,
	})
	for _, turn := range turns {
		switch turn.Role {
		case agent.RoleRequest:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("USER'S REQUEST: %q", turn.Content),
			})
		case agent.RoleController:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: turn.Content,
			})
		case agent.RoleResult:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: turn.Content,
			})
		}
	}
	return messages
}
