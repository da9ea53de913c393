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
	"errors"
	"fmt"
)

// ErrNoResponse indicates the instruction source had no candidate reply.
var ErrNoResponse = errors.New("no response from instruction source")

// SourceError wraps a failure to obtain the next instruction.
type SourceError struct {
	Iteration int
	Err       error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("instruction source failed at iteration %d: %v", e.Iteration, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
