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

package config

import (
	"fmt"
	"sort"
	"strings"
)

// knownKeys lists every leaf key a config file may set. Map-valued sections
// accept any sub-key.
var knownKeys = map[string]bool{
	"working_dir":                 true,
	"max_iterations":              true,
	"model":                       true,
	"api_url":                     true,
	"api_key":                     true,
	"temperature":                 true,
	"max_tokens":                  true,
	"verbose":                     true,
	"metrics":                     true,
	"history_file":                true,
	"log.level":                   true,
	"log.file":                    true,
	"tools.max_read_chars":        true,
	"tools.interpreter":           true,
	"tools.script_extension":      true,
	"tools.timeout_seconds":       true,
	"tools.max_file_size_bytes":   true,
	"tools.max_directory_entries": true,
	"tools.output.max_chars":      true,
	"tools.output.strip_ansi":     true,
	"tools.output.strip_control":  true,
	"tools.deny":                  true,
	"tools.confirm":               true,
	"tools.rate_per_minute":       true,
	"tools.rate_limits":           true,
	"tools.cooldown_seconds":      true,
	"tools.env":                   true,
}

var mapSections = []string{
	"tools.rate_limits.",
	"tools.cooldown_seconds.",
	"tools.env.",
}

// checkKeys rejects keys that no Config field maps to.
func checkKeys(keys []string) error {
	var unknown []string
	for _, key := range keys {
		if knownKeys[key] || inMapSection(key) {
			continue
		}
		unknown = append(unknown, key)
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown configuration field(s) %s", strings.Join(quoteAll(unknown), ", "))
}

func inMapSection(key string) bool {
	for _, prefix := range mapSections {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return true
		}
	}
	return false
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

// ExampleConfigYAML returns an annotated example configuration.
func ExampleConfigYAML() string {
	return exampleConfigYAML
}

const exampleConfigYAML = `# workbench configuration
working_dir: ./calculator
max_iterations: 20
model: gpt-4o-mini
api_url: https://api.openai.com/v1
# api_key is usually taken from OPENAI_API_KEY or GEMINI_API_KEY
log:
  level: info
tools:
  interpreter: python3
  script_extension: .py
  timeout_seconds: 30
  max_read_chars: 0
  output:
    max_chars: 0
    strip_ansi: true
    strip_control: true
  confirm:
    - write_file
    - run_python_file
  deny: []
`
