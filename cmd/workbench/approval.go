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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"workbench/internal/tools"
)

type approvalDecision int

const (
	approvalUnknown approvalDecision = iota
	approvalYes
	approvalNo
	approvalAlways
)

type approvalPromptFunc func(ctx context.Context, capability string, args tools.Arguments) (approvalDecision, error)

// newApprover asks prompt once per call until the user answers "always" for
// a capability.
func newApprover(prompt approvalPromptFunc) tools.Approver {
	alwaysAllowed := make(map[string]bool)
	var mu sync.RWMutex
	return tools.ApproverFunc(func(ctx context.Context, capability string, args tools.Arguments) (bool, error) {
		mu.RLock()
		allowed := alwaysAllowed[capability]
		mu.RUnlock()
		if allowed {
			return true, nil
		}

		decision, err := prompt(ctx, capability, args)
		if err != nil {
			return false, err
		}
		if decision == approvalAlways {
			mu.Lock()
			alwaysAllowed[capability] = true
			mu.Unlock()
			return true, nil
		}
		return decision == approvalYes, nil
	})
}

func promptApproval(ctx context.Context, capability string, args tools.Arguments) (approvalDecision, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return approvalNo, fmt.Errorf("no TTY available for approval")
		}
		defer tty.Close()
		input = tty
		output = tty
	}
	return askApproval(ctx, bufio.NewReader(input), output, capability, args)
}

func askApproval(ctx context.Context, reader *bufio.Reader, output io.Writer, capability string, args tools.Arguments) (approvalDecision, error) {
	question := fmt.Sprintf("Allow %s%s? (Yes/no/always): ", capability, describeArgs(args))
	for {
		if err := ctx.Err(); err != nil {
			return approvalNo, err
		}
		fmt.Fprint(output, question)
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return approvalNo, err
		}
		switch decision := parseApprovalInput(line); decision {
		case approvalYes, approvalNo, approvalAlways:
			return decision, nil
		}
		fmt.Fprintln(output, "Please enter yes, no, or always.")
	}
}

// describeArgs renders arguments for the prompt without file contents.
func describeArgs(args tools.Arguments) string {
	if args == nil {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	delete(fields, "content")
	if len(fields) == 0 {
		return ""
	}
	redacted, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return " with args " + string(redacted)
}

func parseApprovalInput(input string) approvalDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return approvalYes
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return approvalYes
	case isPrefixToken(normalized, "no"):
		return approvalNo
	case isPrefixToken(normalized, "always"):
		return approvalAlways
	default:
		return approvalUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}
