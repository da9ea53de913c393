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
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// OutputFilterConfig controls sanitization and truncation for script output.
type OutputFilterConfig struct {
	// MaxChars truncates the report. Zero means no limit.
	MaxChars     int
	StripANSI    bool
	StripControl bool
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]|\x1b\][^\x1b]*(?:\x07|\x1b\\)`)

// DefaultOutputFilterConfig returns default output filtering settings.
func DefaultOutputFilterConfig() OutputFilterConfig {
	return OutputFilterConfig{
		StripANSI:    true,
		StripControl: true,
	}
}

func sanitizeOutput(output string, config OutputFilterConfig) string {
	sanitized := output
	if config.StripANSI {
		sanitized = ansiPattern.ReplaceAllString(sanitized, "")
	}
	if config.StripControl {
		sanitized = stripControlChars(sanitized)
	}
	truncated, cut := truncateString(sanitized, config.MaxChars)
	if cut {
		return fmt.Sprintf("%s\n[output truncated at %d characters]", truncated, config.MaxChars)
	}
	return truncated
}

// stripControlChars drops C0 controls and DEL, keeping line breaks and tabs.
func stripControlChars(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t':
			return r
		case r < 0x20, r == 0x7f:
			return -1
		}
		return r
	}, input)
}

// truncateString cuts input to max runes and reports whether it did.
func truncateString(input string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(input) <= max {
		return input, false
	}
	count := 0
	for offset := range input {
		if count == max {
			return input[:offset], true
		}
		count++
	}
	return input, false
}
