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

import "github.com/google/uuid"

// Reason records why a session ended.
type Reason string

const (
	ReasonFinalAnswer   Reason = "final_answer"
	ReasonMaxIterations Reason = "max_iterations"
	ReasonSourceError   Reason = "source_error"
	ReasonCanceled      Reason = "canceled"
)

// MaxIterationsMessage is the outcome text when the iteration cap is hit.
const MaxIterationsMessage = "Max iterations reached."

// Outcome is the terminal result of a session.
type Outcome struct {
	Reason Reason
	Text   string
	Err    error
}

// State is everything carried from one turn to the next.
type State struct {
	SessionID  uuid.UUID
	Transcript Transcript
	Iteration  int
	Terminated bool
	Outcome    Outcome
}

// NewState starts a session for request.
func NewState(request string) State {
	return State{
		SessionID:  uuid.New(),
		Transcript: NewTranscript(request),
	}
}

func (s State) terminate(reason Reason, text string, err error) State {
	s.Terminated = true
	s.Outcome = Outcome{Reason: reason, Text: text, Err: err}
	return s
}
