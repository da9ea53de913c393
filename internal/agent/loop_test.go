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

package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
	"workbench/internal/tools"
)

type fakeSource struct {
	responses []string
	err       error
	calls     [][]Turn
}

func (f *fakeSource) Next(_ context.Context, turns []Turn) (string, error) {
	f.calls = append(f.calls, turns)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return `{"function_name": "get_files_info", "args": {}}`, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

type fakeDispatcher struct {
	calls []string
}

func (f *fakeDispatcher) Execute(_ context.Context, name string, _ map[string]interface{}) *tools.Result {
	f.calls = append(f.calls, name)
	return &tools.Result{Capability: name, Text: "ok " + name}
}

func newRegistry(t *testing.T) (*tools.Registry, paths.Root) {
	t.Helper()
	root, err := paths.NewRoot(t.TempDir())
	require.NoError(t, err)
	registry := tools.NewRegistry(root, tools.DefaultOptions())
	return registry, root
}

func TestLoopFinalAnswerTerminatesImmediately(t *testing.T) {
	source := &fakeSource{responses: []string{"All done, the tests pass."}}
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(source, dispatcher, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "fix it")

	assert.True(t, state.Terminated)
	assert.Equal(t, ReasonFinalAnswer, state.Outcome.Reason)
	assert.Equal(t, "All done, the tests pass.", state.Outcome.Text)
	assert.Equal(t, 1, state.Iteration)
	assert.Empty(t, dispatcher.calls)
	assert.Len(t, source.calls, 1)
	assert.Equal(t, 2, state.Transcript.Len())
}

func TestLoopUnknownCapabilityContinues(t *testing.T) {
	registry, _ := newRegistry(t)
	source := &fakeSource{responses: []string{
		`{"function_name": "format_disk", "args": {}}`,
		"Sorry, I cannot do that.",
	}}
	loop := NewLoop(source, registry, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "wipe everything")

	require.Equal(t, ReasonFinalAnswer, state.Outcome.Reason)
	assert.Equal(t, 2, state.Iteration)
	turns := state.Transcript.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, RoleResult, turns[2].Role)
	assert.Equal(t, "FUNCTION RESULT:\nError: Unknown function 'format_disk'.\n", turns[2].Content)

	// The second request saw the unknown-capability result.
	require.Len(t, source.calls, 2)
	assert.Len(t, source.calls[1], 3)
}

func TestLoopMaxIterations(t *testing.T) {
	source := &fakeSource{}
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(source, dispatcher, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "loop forever")

	assert.Equal(t, ReasonMaxIterations, state.Outcome.Reason)
	assert.Equal(t, MaxIterationsMessage, state.Outcome.Text)
	assert.Equal(t, DefaultMaxIterations, state.Iteration)
	assert.Len(t, dispatcher.calls, DefaultMaxIterations)
	assert.Len(t, source.calls, DefaultMaxIterations)
	assert.Equal(t, 1+2*DefaultMaxIterations, state.Transcript.Len())
}

func TestLoopCustomMaxIterations(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(&fakeSource{}, dispatcher, Options{MaxIterations: 3, Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "q")

	assert.Equal(t, ReasonMaxIterations, state.Outcome.Reason)
	assert.Equal(t, 3, loop.MaxIterations())
	assert.Len(t, dispatcher.calls, 3)
}

func TestLoopCapabilityErrorsDoNotTerminate(t *testing.T) {
	registry, _ := newRegistry(t)
	source := &fakeSource{responses: []string{
		`{"function_name": "get_file_content", "args": {"file_path": "/etc/passwd"}}`,
		`{"function_name": "get_file_content", "args": {}}`,
		`{"function_name": "get_file_content", "args": {"file_path": "missing.py"}}`,
		"I could not find it.",
	}}
	loop := NewLoop(source, registry, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "read secrets")

	require.Equal(t, ReasonFinalAnswer, state.Outcome.Reason)
	turns := state.Transcript.Turns()
	require.Len(t, turns, 8)
	for _, i := range []int{2, 4, 6} {
		assert.Equal(t, RoleResult, turns[i].Role)
		assert.True(t, strings.HasPrefix(turns[i].Content, "FUNCTION RESULT:\nError: "), turns[i].Content)
	}
	assert.Contains(t, turns[2].Content, "/etc/passwd")
}

func TestLoopWriteScenario(t *testing.T) {
	registry, root := newRegistry(t)
	source := &fakeSource{responses: []string{
		"```json\n{\"function_name\": \"write_file\", \"args\": {\"file_path\": \"sub/x.txt\", \"content\": \"ipsum\"}}\n```",
		"Wrote the file.",
	}}
	var events []TurnEvent
	loop := NewLoop(source, registry, Options{
		Logger: zerolog.Nop(),
		OnTurn: func(e TurnEvent) { events = append(events, e) },
	})

	state := loop.Run(context.Background(), "write ipsum")

	assert.Equal(t, "Wrote the file.", state.Outcome.Text)
	data, err := os.ReadFile(filepath.Join(root.Path(), "sub", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ipsum", string(data))

	require.Len(t, events, 2)
	require.NotNil(t, events[0].Instruction)
	assert.Equal(t, "write_file", events[0].Instruction.Capability)
	assert.Equal(t, `Successfully wrote to "sub/x.txt" (5 characters written)`, events[0].Result.Text)
	assert.True(t, events[1].Terminated)
	assert.Equal(t, ReasonFinalAnswer, events[1].Outcome.Reason)
}

func TestLoopSourceError(t *testing.T) {
	boom := errors.New("quota exceeded")
	source := &fakeSource{err: boom}
	loop := NewLoop(source, &fakeDispatcher{}, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "q")

	assert.Equal(t, ReasonSourceError, state.Outcome.Reason)
	assert.ErrorIs(t, state.Outcome.Err, boom)
	var srcErr *SourceError
	require.ErrorAs(t, state.Outcome.Err, &srcErr)
	assert.Equal(t, 1, srcErr.Iteration)
	assert.Equal(t, 0, state.Iteration)
}

func TestLoopBlankResponseIsFinalAnswer(t *testing.T) {
	source := &fakeSource{responses: []string{"  \n"}}
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(source, dispatcher, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "q")

	assert.Equal(t, ReasonFinalAnswer, state.Outcome.Reason)
	assert.Equal(t, "", state.Outcome.Text)
	assert.NoError(t, state.Outcome.Err)
	assert.Equal(t, 1, state.Iteration)
	assert.Empty(t, dispatcher.calls)
}

func TestLoopNoResponseIsSourceError(t *testing.T) {
	source := &fakeSource{err: ErrNoResponse}
	loop := NewLoop(source, &fakeDispatcher{}, Options{Logger: zerolog.Nop()})

	state := loop.Run(context.Background(), "q")

	assert.Equal(t, ReasonSourceError, state.Outcome.Reason)
	assert.ErrorIs(t, state.Outcome.Err, ErrNoResponse)
	assert.Equal(t, 0, state.Iteration)
}

func TestLoopCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := &fakeSource{}
	loop := NewLoop(source, &fakeDispatcher{}, Options{Logger: zerolog.Nop()})

	state := loop.Run(ctx, "q")

	assert.Equal(t, ReasonCanceled, state.Outcome.Reason)
	assert.ErrorIs(t, state.Outcome.Err, context.Canceled)
	assert.Empty(t, source.calls)
}

func TestStepIsPureOverState(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	loop := NewLoop(&fakeSource{}, dispatcher, Options{Logger: zerolog.Nop()})

	initial := NewState("q")
	next := loop.Step(context.Background(), initial)

	assert.Equal(t, 0, initial.Iteration)
	assert.Equal(t, 1, initial.Transcript.Len())
	assert.Equal(t, 1, next.Iteration)
	assert.Equal(t, 3, next.Transcript.Len())
	assert.Equal(t, initial.SessionID, next.SessionID)
	assert.False(t, next.Terminated)

	done := initial
	done.Terminated = true
	assert.Equal(t, done, loop.Step(context.Background(), done))
	assert.Len(t, dispatcher.calls, 1)
}

func TestLoopResultKindsReachObserver(t *testing.T) {
	registry, _ := newRegistry(t)
	source := &fakeSource{responses: []string{
		`{"function_name": "get_files_info", "args": {"directory": "../"}}`,
		"done",
	}}
	var kinds []apperrors.Kind
	loop := NewLoop(source, registry, Options{
		Logger: zerolog.Nop(),
		OnTurn: func(e TurnEvent) {
			if e.Result != nil {
				kinds = append(kinds, e.Result.Kind)
			}
		},
	})

	loop.Run(context.Background(), "q")

	assert.Equal(t, []apperrors.Kind{apperrors.KindOutsideSandbox}, kinds)
}
