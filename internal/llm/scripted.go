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
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"workbench/internal/agent"
)

// Script is the on-disk form of a replay script:
//
//	responses:
//	  - '{"function_name": "get_files_info", "args": {}}'
//	  - The project has a single entry point.
type Script struct {
	Responses []string `yaml:"responses"`
}

// ScriptedSource replays canned controller responses in order.
type ScriptedSource struct {
	mu        sync.Mutex
	responses []string
	served    int
}

// NewScriptedSource creates a source that returns responses in order.
func NewScriptedSource(responses ...string) *ScriptedSource {
	return &ScriptedSource{responses: append([]string(nil), responses...)}
}

// LoadScript reads a YAML replay script.
func LoadScript(path string) (*ScriptedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScriptError{Path: path, Err: err}
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, &ScriptError{Path: path, Err: err}
	}
	if len(script.Responses) == 0 {
		return nil, &ScriptError{Path: path, Err: fmt.Errorf("no responses")}
	}
	return NewScriptedSource(script.Responses...), nil
}

// Next implements agent.InstructionSource.
func (s *ScriptedSource) Next(ctx context.Context, _ []agent.Turn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.served >= len(s.responses) {
		return "", ErrScriptExhausted
	}
	next := s.responses[s.served]
	s.served++
	return next, nil
}

// Remaining returns the number of responses not yet served.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses) - s.served
}
