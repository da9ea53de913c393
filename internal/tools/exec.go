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

package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
)

// ScriptOptions configures the script executor.
type ScriptOptions struct {
	Interpreter string
	// Extension is the suffix a script must carry, including the dot.
	Extension string
	Timeout   time.Duration
	// WaitDelay bounds how long output pipes are drained after the child is killed.
	WaitDelay time.Duration
	// Env is appended to the host environment.
	Env []string
}

const defaultWaitDelay = 2 * time.Second

// DefaultScriptOptions runs .py files with python3 under a 30 second limit.
func DefaultScriptOptions() ScriptOptions {
	return ScriptOptions{
		Interpreter: "python3",
		Extension:   ".py",
		Timeout:     DefaultScriptTimeout,
		WaitDelay:   defaultWaitDelay,
	}
}

func normalizeScriptOptions(opts ScriptOptions) ScriptOptions {
	defaults := DefaultScriptOptions()
	if strings.TrimSpace(opts.Interpreter) == "" {
		opts.Interpreter = defaults.Interpreter
	}
	if opts.Extension == "" {
		opts.Extension = defaults.Extension
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = defaults.WaitDelay
	}
	return opts
}

// RunScript executes path with the configured interpreter, working directory
// set to the root. The child and everything it spawns are killed on timeout.
func RunScript(ctx context.Context, root paths.Root, path string, args []string, opts ScriptOptions, filters OutputFilterConfig) (string, error) {
	opts = normalizeScriptOptions(opts)

	resolved, err := root.Validate(path)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindOutsideSandbox) {
			return "", apperrors.Newf(apperrors.KindOutsideSandbox,
				"Cannot execute %q as it is outside the permitted working directory", path).WithPath(path)
		}
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", apperrors.Newf(apperrors.KindNotFound, "File %q not found.", path).WithPath(path)
		}
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to stat %q", path), err).WithPath(path)
	}
	if !info.Mode().IsRegular() {
		return "", apperrors.Newf(apperrors.KindNotAFile, "%q is not a regular file", path).WithPath(path)
	}
	if filepath.Ext(resolved) != opts.Extension {
		return "", apperrors.Newf(apperrors.KindUnsupportedType, "%q is not a %s file", path, opts.Extension).WithPath(path)
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.Interpreter, append([]string{resolved}, args...)...)
	cmd.Dir = root.Path()
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.WaitDelay = opts.WaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to start %s for %q", opts.Interpreter, path), err).WithPath(path)
	}
	waitErr := cmd.Wait()
	// Anything the script left running in its group goes with it.
	reapProcessGroup(cmd)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", apperrors.Newf(apperrors.KindTimeout, "Execution of %q timed out after %s", path, opts.Timeout).WithPath(path)
	}
	if ctx.Err() != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("execution of %q was canceled", path), ctx.Err()).WithPath(path)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// The script exited but a descendant held the pipes open.
			if cmd.ProcessState != nil {
				exitCode = cmd.ProcessState.ExitCode()
			}
		default:
			return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to run %q", path), waitErr).WithPath(path)
		}
	}

	return sanitizeOutput(FormatReport(exitCode, stdout.String(), stderr.String()), filters), nil
}

// FormatReport composes the execution report: a non-zero exit notice, then
// stdout, then stderr, each omitted when empty.
func FormatReport(exitCode int, stdout, stderr string) string {
	var sections []string
	if exitCode != 0 {
		sections = append(sections, fmt.Sprintf("Process exited with code %d", exitCode))
	}
	if out := strings.TrimSpace(stdout); out != "" {
		sections = append(sections, "STDOUT:\n"+out)
	}
	if errOut := strings.TrimSpace(stderr); errOut != "" {
		sections = append(sections, "STDERR:\n"+errOut)
	}
	if len(sections) == 0 {
		return "No output produced."
	}
	return strings.Join(sections, "\n\n")
}
