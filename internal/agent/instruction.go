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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction is one parsed controller request: a capability name and its
// raw arguments. Arguments are typed later by the registry.
type Instruction struct {
	Capability string                 `json:"function_name"`
	Args       map[string]interface{} `json:"args"`
}

// ParseFailure describes controller text that is not an instruction. The
// loop treats it as the controller's final answer.
type ParseFailure struct {
	Text   string
	Reason string
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("not an instruction: %s", f.Reason)
}

// ParseInstruction decodes controller text of the form
// {"function_name": "...", "args": {...}}, optionally inside a ```json fence.
func ParseInstruction(text string) (Instruction, *ParseFailure) {
	trimmed := strings.TrimSpace(text)
	body := stripFence(trimmed)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Instruction{}, &ParseFailure{Text: trimmed, Reason: "response is not a JSON object"}
	}

	rawName, hasName := fields["function_name"]
	rawArgs, hasArgs := fields["args"]
	if !hasName || !hasArgs {
		return Instruction{}, &ParseFailure{Text: body, Reason: "missing function_name or args"}
	}

	var name string
	if err := json.Unmarshal(rawName, &name); err != nil || strings.TrimSpace(name) == "" {
		return Instruction{}, &ParseFailure{Text: body, Reason: "function_name must be a non-empty string"}
	}

	var args map[string]interface{}
	if bytes.Equal(bytes.TrimSpace(rawArgs), []byte("null")) {
		return Instruction{}, &ParseFailure{Text: body, Reason: "args must be an object"}
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return Instruction{}, &ParseFailure{Text: body, Reason: "args must be an object"}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	return Instruction{Capability: name, Args: args}, nil
}

// stripFence removes a surrounding ```json or ``` code fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
