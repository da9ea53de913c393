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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"workbench/internal/agent"
	"workbench/internal/config"
	"workbench/internal/llm"
	"workbench/internal/paths"
	"workbench/internal/telemetry"
	"workbench/internal/tools"
	"workbench/internal/ui"
)

const noQuestionMessage = "No question provided. Exiting program."

// session bundles what one invocation needs to answer questions.
type session struct {
	loop    *agent.Loop
	printer *ui.Printer
	logger  zerolog.Logger
}

func run(cmd *cobra.Command, flags *cliFlags, stdin io.Reader, question string) error {
	if flags.exampleConfig {
		_, err := io.WriteString(cmd.OutOrStdout(), config.ExampleConfigYAML())
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, flags, cfg)

	logger, closeLog, err := initLogger(flags.debug, cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info().Str("version", version).Msg("workbench starting")

	interactive := question == "" && isTerminal(stdin)
	if question == "" && !interactive {
		return &exitError{code: 1, message: noQuestionMessage}
	}

	shutdown, err := telemetry.Setup(cfg.Metrics, "workbench", version, cmd.ErrOrStderr(), 0)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to flush metrics")
		}
	}()

	s, err := newSession(cfg, flags.script, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}

	if interactive {
		return runREPL(cmd.Context(), s, cfg.HistoryFile)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ask(ctx, question)
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, flags *cliFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("dir") {
		cfg.WorkingDir = flags.dir
	}
	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if changed("metrics") {
		cfg.Metrics = flags.metrics
	}
	if changed("max-iterations") {
		cfg.MaxIterations = flags.maxIterations
	}
	if changed("log-file") {
		cfg.Log.File = flags.logFile
	}
}

func newSession(cfg *config.Config, scriptPath string, stdout, stderr io.Writer, logger zerolog.Logger) (*session, error) {
	root, err := paths.NewRoot(cfg.WorkingDir)
	if err != nil {
		return nil, err
	}

	recorder, err := telemetry.NewRecorder(nil)
	if err != nil {
		return nil, err
	}
	opts := cfg.ToolOptions()
	opts.Recorder = recorder
	if len(cfg.Tools.Confirm) > 0 {
		opts.Approver = newApprover(promptApproval)
	}
	registry := tools.NewRegistry(root, opts)

	for _, w := range cfg.Validate(registry) {
		logger.Warn().Str("field", w.Field).Msg(w.Message)
		fmt.Fprintf(stderr, "Warning: %s\n", w.Message)
	}

	source, err := newSource(cfg, scriptPath, registry)
	if err != nil {
		return nil, err
	}

	printer := ui.NewPrinter(stdout, ui.Options{
		Verbose:  cfg.Verbose,
		Markdown: isTerminal(stdout),
	})
	loopOpts := cfg.LoopOptions()
	loopOpts.Logger = logger
	loopOpts.OnTurn = printer.Turn

	logger.Info().
		Str("working_dir", root.Path()).
		Strs("capabilities", registry.Names()).
		Msg("session ready")
	return &session{
		loop:    agent.NewLoop(source, registry, loopOpts),
		printer: printer,
		logger:  logger,
	}, nil
}

func newSource(cfg *config.Config, scriptPath string, registry *tools.Registry) (agent.InstructionSource, error) {
	if scriptPath != "" {
		script, err := llm.LoadScript(scriptPath)
		if err != nil {
			return nil, err
		}
		return script, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured: set api_key, OPENAI_API_KEY or GEMINI_API_KEY")
	}
	chatOpts := cfg.ChatOptions()
	chat, err := llm.NewChatSource(llm.NewOpenAIClient(chatOpts), chatOpts, registry.Describe())
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// ask runs one question to completion. Sessions that end abnormally are
// reported as exit code 1.
func (s *session) ask(ctx context.Context, question string) error {
	s.printer.Request(question)
	state := s.loop.Run(ctx, question)
	switch state.Outcome.Reason {
	case agent.ReasonSourceError, agent.ReasonCanceled:
		return &exitError{code: 1}
	}
	return nil
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
