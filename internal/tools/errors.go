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
	"errors"
	"fmt"

	apperrors "workbench/internal/errors"
)

// Common capability errors
var (
	// ErrCapabilityNotAllowed indicates a capability is blocked by the current policy.
	ErrCapabilityNotAllowed = errors.New("capability blocked by policy")

	// ErrCapabilityDeniedByUser indicates the operator denied running a capability.
	ErrCapabilityDeniedByUser = errors.New("capability execution denied by user")

	// ErrRateLimited indicates a capability call exceeded rate limits.
	ErrRateLimited = errors.New("capability rate limit exceeded")

	// ErrInCooldown indicates a capability is in a cooldown window.
	ErrInCooldown = errors.New("capability is in cooldown")
)

// NewPermissionError wraps a policy or approval failure with the permission kind.
func NewPermissionError(name string, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.KindPermission, fmt.Sprintf("permission denied for %s", name), err)
}

// NewArgumentError reports arguments that do not fit a capability's schema.
func NewArgumentError(name string, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.KindInvalidArguments, fmt.Sprintf("invalid arguments for %s", name), err)
}
