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

import "strings"

// Role distinguishes who produced a transcript turn.
type Role string

const (
	RoleRequest    Role = "request"
	RoleController Role = "controller"
	RoleResult     Role = "result"
)

// ResultPrefix labels capability output so it cannot be mistaken for controller text.
const ResultPrefix = "FUNCTION RESULT:\n"

// Turn is one transcript entry.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the append-only history of one session. Appending returns a
// new Transcript; earlier values are never modified.
type Transcript struct {
	turns []Turn
}

// NewTranscript starts a transcript with the user's request.
func NewTranscript(request string) Transcript {
	return Transcript{turns: []Turn{{Role: RoleRequest, Content: request}}}
}

func (t Transcript) append(turn Turn) Transcript {
	turns := make([]Turn, len(t.turns), len(t.turns)+1)
	copy(turns, t.turns)
	return Transcript{turns: append(turns, turn)}
}

// WithController appends the controller's raw response.
func (t Transcript) WithController(text string) Transcript {
	return t.append(Turn{Role: RoleController, Content: text})
}

// WithResult appends a labeled capability result.
func (t Transcript) WithResult(text string) Transcript {
	return t.append(Turn{Role: RoleResult, Content: ResultPrefix + text + "\n"})
}

// Turns returns a copy of the turns.
func (t Transcript) Turns() []Turn {
	return append([]Turn(nil), t.turns...)
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// Request returns the request that started the session.
func (t Transcript) Request() string {
	if len(t.turns) == 0 || t.turns[0].Role != RoleRequest {
		return ""
	}
	return t.turns[0].Content
}

// String renders the transcript for logs and debugging.
func (t Transcript) String() string {
	var b strings.Builder
	for i, turn := range t.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("[")
		b.WriteString(string(turn.Role))
		b.WriteString("] ")
		b.WriteString(turn.Content)
	}
	return b.String()
}
