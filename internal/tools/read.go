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
	"io"
	"os"
	"unicode/utf8"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
)

// ReadFile returns the UTF-8 content of path. When limits.MaxReadChars is
// positive the content is cut to that many characters and a marker is added.
func ReadFile(root paths.Root, path string, limits Limits) (string, error) {
	limits = normalizeLimits(limits)

	resolved, err := root.Validate(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to stat %q", path), err).WithPath(path)
	}
	if !info.Mode().IsRegular() {
		return "", apperrors.Newf(apperrors.KindNotAFile, "File not found or is not a regular file: %q", path).WithPath(path)
	}
	if info.Size() > limits.MaxFileSizeBytes {
		return "", apperrors.Newf(apperrors.KindIO, "file %q is %d bytes, more than the limit of %d",
			path, info.Size(), limits.MaxFileSizeBytes).WithPath(path)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to open %q", path), err).WithPath(path)
	}
	defer f.Close()

	// Read one byte past the limit so growth since the stat is caught.
	data, err := io.ReadAll(io.LimitReader(f, limits.MaxFileSizeBytes+1))
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to read %q", path), err).WithPath(path)
	}
	if int64(len(data)) > limits.MaxFileSizeBytes {
		return "", apperrors.Newf(apperrors.KindIO, "file %q exceeds the limit of %d bytes", path, limits.MaxFileSizeBytes).WithPath(path)
	}
	if !utf8.Valid(data) {
		return "", apperrors.Newf(apperrors.KindIO, "file %q is not valid UTF-8 text", path).WithPath(path)
	}

	content := string(data)
	if truncated, cut := truncateString(content, limits.MaxReadChars); cut {
		return fmt.Sprintf("%s\n[...File %q truncated at %d characters]", truncated, path, limits.MaxReadChars), nil
	}
	return content, nil
}
