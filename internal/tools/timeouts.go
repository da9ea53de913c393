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

import "time"

// DefaultScriptTimeout is the wall-clock limit for run_python_file.
const DefaultScriptTimeout = 30 * time.Second

// TimeoutConfig configures per-capability execution timeouts.
type TimeoutConfig struct {
	Default       time.Duration
	PerCapability map[string]time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		PerCapability: map[string]time.Duration{
			RunPythonFile: DefaultScriptTimeout,
		},
	}
}

// TimeoutFor returns the timeout for a capability, if configured.
func (t TimeoutConfig) TimeoutFor(name string) time.Duration {
	if t.PerCapability != nil {
		if timeout, ok := t.PerCapability[name]; ok {
			return timeout
		}
	}
	return t.Default
}
