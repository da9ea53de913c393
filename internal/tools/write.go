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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
)

// WriteResult reports a completed write.
type WriteResult struct {
	Path  string
	Chars int
	Bytes int
}

// String renders the confirmation shown to the controller.
func (w WriteResult) String() string {
	return fmt.Sprintf("Successfully wrote to %q (%d characters written)", w.Path, w.Chars)
}

// WriteFile replaces path with content, creating missing parent directories.
// The final path is validated after the parents exist, so a symlinked target
// that leaves the root is refused.
func WriteFile(root paths.Root, path, content string, limits Limits) (WriteResult, error) {
	limits = normalizeLimits(limits)

	if strings.TrimSpace(path) == "" {
		return WriteResult{}, apperrors.New(apperrors.KindInvalidArguments, "file_path cannot be empty")
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		return WriteResult{}, apperrors.Newf(apperrors.KindInvalidArguments, "%q names a directory, not a file", path).WithPath(path)
	}
	if int64(len(content)) > limits.MaxFileSizeBytes {
		return WriteResult{}, apperrors.Newf(apperrors.KindIO, "content is %d bytes, more than the limit of %d",
			len(content), limits.MaxFileSizeBytes).WithPath(path)
	}

	dir := filepath.Dir(path)
	resolvedDir, err := root.ValidateForWrite(dir)
	if err != nil {
		return WriteResult{}, writeError(path, err)
	}
	if err := os.MkdirAll(resolvedDir, 0o755); err != nil {
		return WriteResult{}, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to create directories for %q", path), err).WithPath(path)
	}

	target, err := root.ValidateForWrite(path)
	if err != nil {
		return WriteResult{}, writeError(path, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return WriteResult{}, apperrors.Newf(apperrors.KindNotAFile, "%q is a directory, not a file", path).WithPath(path)
		}
		if !info.Mode().IsRegular() {
			return WriteResult{}, apperrors.Newf(apperrors.KindNotAFile, "%q is not a regular file", path).WithPath(path)
		}
		mode = info.Mode().Perm()
	}

	if err := atomicWrite(target, []byte(content), mode); err != nil {
		return WriteResult{}, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to write %q", path), err).WithPath(path)
	}

	return WriteResult{
		Path:  path,
		Chars: utf8.RuneCountInString(content),
		Bytes: len(content),
	}, nil
}

func writeError(path string, err error) error {
	if apperrors.IsKind(err, apperrors.KindOutsideSandbox) {
		return apperrors.Newf(apperrors.KindOutsideSandbox,
			"Cannot write to %q as it is outside the permitted working directory", path).WithPath(path)
	}
	return err
}

// atomicWrite writes data to a temporary sibling and renames it over target.
func atomicWrite(target string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return err
	}
	return nil
}
