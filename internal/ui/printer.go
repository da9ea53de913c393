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

// Package ui prints session progress to a terminal or plain writer.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"workbench/internal/agent"
)

const (
	callColor    = "#89b4fa"
	resultColor  = "#a6e3a1"
	errorColor   = "#f38ba8"
	headerColor  = "#cba6f7"
	warningColor = "#fab387"
)

// Options configures a Printer.
type Options struct {
	// Verbose prints arguments and results.
	Verbose bool
	// Markdown renders the final response with glamour.
	Markdown bool
	// Profile overrides color detection on the output writer.
	Profile *termenv.Profile
}

// Printer writes turn events in the order the loop reports them.
type Printer struct {
	mu       sync.Mutex
	out      *termenv.Output
	verbose  bool
	renderer *glamour.TermRenderer
}

// NewPrinter creates a printer on w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	var outOpts []termenv.OutputOption
	if opts.Profile != nil {
		outOpts = append(outOpts, termenv.WithProfile(*opts.Profile))
	}
	p := &Printer{
		out:     termenv.NewOutput(w, outOpts...),
		verbose: opts.Verbose,
	}
	if opts.Markdown {
		// Falls back to plain text when no renderer can be built.
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			p.renderer = r
		}
	}
	return p
}

// Request echoes the user's request in verbose mode.
func (p *Printer) Request(request string) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "User prompt: %s\n", request)
}

// Turn prints one loop event. It is safe to use as agent.Options.OnTurn.
func (p *Printer) Turn(event agent.TurnEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Every controller turn gets a header, including the one that answers.
	if event.Instruction != nil || (event.Terminated && event.Outcome.Reason == agent.ReasonFinalAnswer) {
		fmt.Fprintln(p.out, p.color(fmt.Sprintf("--- Iteration %d ---", event.Iteration), headerColor))
	}
	if event.Instruction != nil {
		if p.verbose {
			fmt.Fprintln(p.out, p.color(fmt.Sprintf("Calling function: %s(%s)",
				event.Instruction.Capability, formatArgs(event.Instruction.Args)), callColor))
		} else {
			fmt.Fprintln(p.out, p.color(" - Calling function: "+event.Instruction.Capability, callColor))
		}
		if p.verbose && event.Result != nil {
			c := resultColor
			if event.Result.Err != nil {
				c = errorColor
			}
			fmt.Fprintln(p.out, p.color("-> "+event.Result.Text, c))
		}
	}
	if event.Terminated {
		p.final(event.Outcome)
	}
}

func (p *Printer) final(outcome agent.Outcome) {
	switch outcome.Reason {
	case agent.ReasonFinalAnswer:
		fmt.Fprintln(p.out, "Final response:")
		fmt.Fprintln(p.out, p.render(outcome.Text))
	case agent.ReasonMaxIterations:
		fmt.Fprintln(p.out, p.color(outcome.Text, warningColor))
	case agent.ReasonCanceled:
		fmt.Fprintln(p.out, p.color("Canceled: "+outcome.Text, warningColor))
	default:
		fmt.Fprintln(p.out, p.color("Error: "+outcome.Text, errorColor))
	}
}

func (p *Printer) render(text string) string {
	if p.renderer == nil {
		return text
	}
	rendered, err := p.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func (p *Printer) color(text, hex string) string {
	return p.out.String(text).Foreground(p.out.Color(hex)).String()
}

func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
