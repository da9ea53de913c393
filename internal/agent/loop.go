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
	"strings"

	"github.com/rs/zerolog"

	"workbench/internal/tools"
)

// DefaultMaxIterations caps the number of controller turns per session.
const DefaultMaxIterations = 20

// InstructionSource produces the controller's next raw response given the
// transcript so far.
type InstructionSource interface {
	Next(ctx context.Context, turns []Turn) (string, error)
}

// Dispatcher runs a named capability. *tools.Registry implements it.
type Dispatcher interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) *tools.Result
}

// TurnEvent describes one completed turn for presentation.
type TurnEvent struct {
	Iteration   int
	Response    string
	Instruction *Instruction
	Result      *tools.Result
	// Terminated is set on the turn that ended the session.
	Terminated bool
	Outcome    Outcome
}

// Options configures a Loop.
type Options struct {
	MaxIterations int
	Logger        zerolog.Logger
	OnTurn        func(TurnEvent)
}

// Loop drives a session: one instruction per turn until the controller
// answers in plain text or the iteration cap is reached.
type Loop struct {
	source        InstructionSource
	dispatcher    Dispatcher
	maxIterations int
	logger        zerolog.Logger
	onTurn        func(TurnEvent)
}

// NewLoop creates a loop over source and dispatcher.
func NewLoop(source InstructionSource, dispatcher Dispatcher, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Loop{
		source:        source,
		dispatcher:    dispatcher,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
		onTurn:        opts.OnTurn,
	}
}

// MaxIterations returns the configured iteration cap.
func (l *Loop) MaxIterations() int {
	return l.maxIterations
}

// Run executes a whole session for request.
func (l *Loop) Run(ctx context.Context, request string) State {
	state := NewState(request)
	logger := l.logger.With().Str("session_id", state.SessionID.String()).Logger()
	logger.Info().Int("max_iterations", l.maxIterations).Msg("session started")

	for !state.Terminated {
		state = l.Step(ctx, state)
	}

	logger.Info().
		Str("reason", string(state.Outcome.Reason)).
		Int("iterations", state.Iteration).
		Int("turns", state.Transcript.Len()).
		Msg("session finished")
	return state
}

// Step advances state by one turn and returns the new state. A terminated
// state is returned unchanged.
func (l *Loop) Step(ctx context.Context, state State) State {
	if state.Terminated {
		return state
	}
	logger := l.logger.With().
		Str("session_id", state.SessionID.String()).
		Int("iteration", state.Iteration+1).
		Logger()

	if err := ctx.Err(); err != nil {
		return l.finish(state.terminate(ReasonCanceled, err.Error(), err))
	}
	if state.Iteration >= l.maxIterations {
		logger.Warn().Msg("iteration cap reached")
		return l.finish(state.terminate(ReasonMaxIterations, MaxIterationsMessage, nil))
	}

	response, err := l.source.Next(ctx, state.Transcript.Turns())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return l.finish(state.terminate(ReasonCanceled, ctxErr.Error(), err))
		}
		srcErr := &SourceError{Iteration: state.Iteration + 1, Err: err}
		logger.Error().Err(err).Msg("instruction source failed")
		return l.finish(state.terminate(ReasonSourceError, srcErr.Error(), srcErr))
	}

	response = strings.TrimSpace(response)
	state.Iteration++
	state.Transcript = state.Transcript.WithController(response)

	instruction, failure := ParseInstruction(response)
	if failure != nil {
		logger.Info().Str("reason", failure.Reason).Msg("final answer")
		next := state.terminate(ReasonFinalAnswer, failure.Text, nil)
		l.emit(TurnEvent{
			Iteration:  next.Iteration,
			Response:   response,
			Terminated: true,
			Outcome:    next.Outcome,
		})
		return next
	}

	logger.Info().Str("capability", instruction.Capability).Msg("dispatching")
	logger.Debug().Interface("args", instruction.Args).Msg("capability arguments")

	result := l.dispatcher.Execute(ctx, instruction.Capability, instruction.Args)
	if result.Err != nil {
		logger.Warn().
			Str("capability", instruction.Capability).
			Str("kind", string(result.Kind)).
			Err(result.Err).
			Msg("capability failed")
	} else {
		logger.Debug().
			Str("capability", instruction.Capability).
			Int("result_len", len(result.Text)).
			Dur("duration", result.Duration).
			Msg("capability succeeded")
	}
	state.Transcript = state.Transcript.WithResult(result.Text)

	l.emit(TurnEvent{
		Iteration:   state.Iteration,
		Response:    response,
		Instruction: &instruction,
		Result:      result,
	})
	return state
}

// finish reports a termination that happened without a new controller turn.
func (l *Loop) finish(next State) State {
	l.emit(TurnEvent{
		Iteration:  next.Iteration,
		Terminated: true,
		Outcome:    next.Outcome,
	})
	return next
}

func (l *Loop) emit(event TurnEvent) {
	if l.onTurn != nil {
		l.onTurn(event)
	}
}
