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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
)

// Invoker is the implementation of one capability.
type Invoker func(ctx context.Context, args Arguments) (string, error)

// Capability is a named operation with a fixed argument schema.
type Capability struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	// Signature is the short form shown to the controller, e.g. "write_file(file_path: path, content: text)".
	Signature string  `json:"-"`
	Invoke    Invoker `json:"-"`
}

// Result is the outcome of one capability invocation.
type Result struct {
	Capability string
	Text       string
	Err        error
	Kind       apperrors.Kind
	Duration   time.Duration
}

// Approver decides whether a capability that requires confirmation may run.
type Approver interface {
	Approve(ctx context.Context, capability string, args Arguments) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, capability string, args Arguments) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, capability string, args Arguments) (bool, error) {
	return f(ctx, capability, args)
}

// Recorder observes every invocation. Kind is empty on success.
type Recorder interface {
	RecordInvocation(ctx context.Context, capability string, kind apperrors.Kind, d time.Duration)
}

// Policy configures which capabilities are blocked and which need approval.
type Policy struct {
	Denied              map[string]bool
	RequireConfirmation map[string]bool
}

// PolicyFromLists builds a policy from deny/confirmation lists.
func PolicyFromLists(deny, confirm []string) Policy {
	denyMap := make(map[string]bool, len(deny))
	for _, name := range deny {
		denyMap[name] = true
	}
	confirmMap := make(map[string]bool, len(confirm))
	for _, name := range confirm {
		confirmMap[name] = true
	}
	return Policy{
		Denied:              denyMap,
		RequireConfirmation: confirmMap,
	}
}

// Options configures a Registry.
type Options struct {
	Limits        Limits
	Timeouts      TimeoutConfig
	OutputFilters OutputFilterConfig
	RateLimits    RateLimitConfig
	Policy        Policy
	Script        ScriptOptions
	Approver      Approver
	Recorder      Recorder
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Limits:        DefaultLimits(),
		Timeouts:      DefaultTimeoutConfig(),
		OutputFilters: DefaultOutputFilterConfig(),
		Script:        DefaultScriptOptions(),
	}
}

// Registry maps capability names to their implementations. It is immutable
// after construction and scoped to a single working root.
type Registry struct {
	root     paths.Root
	opts     Options
	order    []string
	caps     map[string]*Capability
	limiters map[string]*rateLimiter
}

// NewRegistry creates a registry of the four capabilities bound to root.
func NewRegistry(root paths.Root, opts Options) *Registry {
	opts.Limits = normalizeLimits(opts.Limits)
	if opts.Script.Timeout <= 0 {
		opts.Script.Timeout = opts.Timeouts.TimeoutFor(RunPythonFile)
	}
	opts.Script = normalizeScriptOptions(opts.Script)

	r := &Registry{
		root:     root,
		opts:     opts,
		caps:     make(map[string]*Capability),
		limiters: make(map[string]*rateLimiter),
	}
	registerCapabilities(r)

	for _, name := range r.order {
		if limiter := newRateLimiter(opts.RateLimits.rateFor(name), opts.RateLimits.cooldownFor(name)); limiter != nil {
			r.limiters[name] = limiter
		}
	}
	return r
}

func (r *Registry) register(c *Capability) {
	r.order = append(r.order, c.Name)
	r.caps[c.Name] = c
}

// Root returns the working root the registry is bound to.
func (r *Registry) Root() paths.Root {
	return r.root
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns a capability by name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	c, ok := r.caps[name]
	if !ok {
		return Capability{}, false
	}
	return *c, true
}

// Describe renders the capability signatures and parameter schemas for a
// controller prompt. Denied capabilities are left out.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		c := r.caps[name]
		if r.opts.Policy.decide(name) == policyDenied {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Signature, c.Description)
		if params, err := json.Marshal(c.Parameters); err == nil {
			fmt.Fprintf(&b, "  parameters: %s\n", params)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// OpenAITools returns the registry as OpenAI tool definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	defs := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		c := r.caps[name]
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        c.Name,
				Description: c.Description,
				Parameters:  c.Parameters,
			},
		})
	}
	return defs
}

// Execute decodes raw arguments and runs the named capability. It never
// panics and never returns nil; failures are reported in the Result.
func (r *Registry) Execute(ctx context.Context, name string, raw map[string]interface{}) (result *Result) {
	start := time.Now()
	result = &Result{Capability: name}
	defer func() {
		if p := recover(); p != nil {
			result.setError(apperrors.Newf(apperrors.KindIO, "capability %s failed: %v", name, p))
		}
		result.Duration = time.Since(start)
		if r.opts.Recorder != nil {
			r.opts.Recorder.RecordInvocation(ctx, name, result.Kind, result.Duration)
		}
	}()

	c, ok := r.Lookup(name)
	if !ok {
		result.Kind = apperrors.KindUnknownCapability
		result.Err = apperrors.Newf(apperrors.KindUnknownCapability, "unknown capability %q", name)
		result.Text = fmt.Sprintf("Error: Unknown function '%s'.", name)
		return result
	}

	args, err := DecodeArguments(name, raw)
	if err != nil {
		result.setError(err)
		return result
	}

	if err := r.authorize(ctx, &c, args); err != nil {
		result.setError(err)
		return result
	}

	text, err := c.Invoke(ctx, args)
	if err != nil {
		result.setError(err)
		return result
	}
	result.Text = text
	return result
}

func (r *Result) setError(err error) {
	r.Err = err
	r.Kind = apperrors.KindOf(err)
	if r.Kind == "" {
		r.Kind = apperrors.KindIO
	}
	r.Text = "Error: " + err.Error()
}

type policyDecision int

const (
	policyAllowed policyDecision = iota
	policyConfirm
	policyDenied
)

func (p Policy) decide(name string) policyDecision {
	if p.Denied[name] {
		return policyDenied
	}
	if p.RequireConfirmation[name] {
		return policyConfirm
	}
	return policyAllowed
}

func (r *Registry) authorize(ctx context.Context, c *Capability, args Arguments) error {
	decision := r.opts.Policy.decide(c.Name)
	if decision == policyDenied {
		return NewPermissionError(c.Name, ErrCapabilityNotAllowed)
	}
	if limiter := r.limiters[c.Name]; limiter != nil {
		if err := limiter.Allow(); err != nil {
			return NewPermissionError(c.Name, err)
		}
	}
	if decision == policyConfirm && r.opts.Approver != nil {
		ok, err := r.opts.Approver.Approve(ctx, c.Name, args)
		if err != nil {
			return NewPermissionError(c.Name, err)
		}
		if !ok {
			return NewPermissionError(c.Name, ErrCapabilityDeniedByUser)
		}
	}
	return nil
}

func registerCapabilities(r *Registry) {
	r.register(&Capability{
		Name:        GetFilesInfo,
		Description: "Lists files in the specified directory along with their sizes, constrained to the working directory.",
		Parameters:  mustSchema(GetFilesInfo),
		Signature:   "get_files_info(directory?: path)",
		Invoke: func(_ context.Context, args Arguments) (string, error) {
			a := args.(ListDirectoryArgs)
			entries, err := ListDirectory(r.root, a.Directory, r.opts.Limits)
			if err != nil {
				return "", err
			}
			return FormatEntries(entries), nil
		},
	})
	r.register(&Capability{
		Name:        GetFileContent,
		Description: "Reads and returns the entire content of a specified file.",
		Parameters:  mustSchema(GetFileContent),
		Signature:   "get_file_content(file_path: path)",
		Invoke: func(_ context.Context, args Arguments) (string, error) {
			a := args.(ReadFileArgs)
			return ReadFile(r.root, a.FilePath, r.opts.Limits)
		},
	})
	r.register(&Capability{
		Name:        WriteFileName,
		Description: "Writes content to a specified file, creating it if it doesn't exist or overwriting it if it does.",
		Parameters:  mustSchema(WriteFileName),
		Signature:   "write_file(file_path: path, content: text)",
		Invoke: func(_ context.Context, args Arguments) (string, error) {
			a := args.(WriteFileArgs)
			res, err := WriteFile(r.root, a.FilePath, a.Content, r.opts.Limits)
			if err != nil {
				return "", err
			}
			return res.String(), nil
		},
	})
	r.register(&Capability{
		Name:        RunPythonFile,
		Description: "Executes a Python file with optional arguments.",
		Parameters:  mustSchema(RunPythonFile),
		Signature:   "run_python_file(file_path: path, args?: list of text)",
		Invoke: func(ctx context.Context, args Arguments) (string, error) {
			a := args.(RunScriptArgs)
			return RunScript(ctx, r.root, a.FilePath, a.Args, r.opts.Script, r.opts.OutputFilters)
		},
	})
}
