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
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench/internal/agent"
)

func TestChatSourceNext(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return completion("  {\"function_name\": \"get_files_info\", \"args\": {}}\n"), nil
		},
	}
	temp := float32(0.2)
	maxTokens := 512
	source, err := NewChatSource(mock, Options{Model: "test-model", Temperature: &temp, MaxTokens: &maxTokens}, "- get_files_info(directory?: path)")
	require.NoError(t, err)

	transcript := agent.NewTranscript("list files").
		WithController(`{"function_name": "get_files_info", "args": {}}`).
		WithResult("Directory is empty")

	text, err := source.Next(context.Background(), transcript.Turns())
	require.NoError(t, err)
	assert.Equal(t, `{"function_name": "get_files_info", "args": {}}`, text)

	require.Len(t, mock.CompletionCalls, 1)
	req := mock.CompletionCalls[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, float32(0.2), req.Temperature)
	assert.Equal(t, 512, req.MaxTokens)
	assert.Empty(t, req.Tools)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "- get_files_info(directory?: path)")
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, `USER'S REQUEST: "list files"`, req.Messages[1].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[3].Role)
	assert.Equal(t, "FUNCTION RESULT:\nDirectory is empty\n", req.Messages[3].Content)
}

func TestChatSourceDefaultsModel(t *testing.T) {
	mock := &MockChatClient{}
	source, err := NewChatSource(mock, Options{}, "")
	require.NoError(t, err)

	text, err := source.Next(context.Background(), agent.NewTranscript("q").Turns())
	require.NoError(t, err)
	assert.Equal(t, "mock response", text)
	assert.Equal(t, DefaultModel, mock.CompletionCalls[0].Model)
	assert.NotEmpty(t, source.SystemPrompt())
}

func TestChatSourceNoChoices(t *testing.T) {
	mock := &MockChatClient{
		CreateCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, nil
		},
	}
	source, err := NewChatSource(mock, Options{}, "")
	require.NoError(t, err)

	_, err = source.Next(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.ErrorIs(t, err, agent.ErrNoResponse)
}

func TestChatSourceAPIError(t *testing.T) {
	boom := errors.New("401 unauthorized")
	mock := &MockChatClient{
		CreateCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, boom
		},
	}
	source, err := NewChatSource(mock, Options{}, "")
	require.NoError(t, err)

	_, err = source.Next(context.Background(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "create_completion", apiErr.Operation)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "API error during create_completion: 401 unauthorized", err.Error())
}

func TestNewOpenAIClient(t *testing.T) {
	assert.NotNil(t, NewOpenAIClient(Options{APIKey: "sk-test", APIURL: "http://localhost:8080/v1"}))
	assert.NotNil(t, NewOpenAIClient(Options{APIKey: "sk-test"}))
}
