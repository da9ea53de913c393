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

// Package paths confines requested paths to a single working root.
//
// Confinement is a check on canonical (symlink-free, absolute) paths: a
// requested path is joined onto the root, resolved, and accepted only when
// the result is the root itself or lies beneath it. There is no OS-level
// isolation and the filesystem may change between validation and use.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	apperrors "workbench/internal/errors"
)

// MaxPathLength bounds the length of a requested path.
const MaxPathLength = 4096

// maxLinkHops bounds manual symlink resolution for paths that do not exist yet.
const maxLinkHops = 40

// Root is a canonical working root. It is fixed for the lifetime of a session.
type Root struct {
	dir string
}

// NewRoot canonicalizes dir and returns it as a Root. dir must exist and be a directory.
func NewRoot(dir string) (Root, error) {
	if strings.TrimSpace(dir) == "" {
		return Root{}, apperrors.New(apperrors.KindInvalidArguments, "working directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, apperrors.Wrap(apperrors.KindIO, "invalid working directory", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if isMissing(err) {
			return Root{}, apperrors.Newf(apperrors.KindNotFound, "working directory %q not found", dir).WithPath(dir)
		}
		return Root{}, apperrors.Wrap(apperrors.KindIO, "failed to resolve working directory", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return Root{}, apperrors.Wrap(apperrors.KindIO, "failed to stat working directory", err)
	}
	if !info.IsDir() {
		return Root{}, apperrors.Newf(apperrors.KindNotADirectory, "working directory %q is not a directory", dir).WithPath(dir)
	}
	return Root{dir: resolved}, nil
}

// Path returns the canonical root directory.
func (r Root) Path() string {
	return r.dir
}

// Validate resolves requested against the root. Every component must exist.
func Validate(root, requested string) (string, error) {
	r, err := NewRoot(root)
	if err != nil {
		return "", err
	}
	return r.Validate(requested)
}

// Validate resolves requested against the root and rejects anything that
// escapes it. An empty path means the root itself. Missing components yield
// a not_found error unless the path is lexically outside the root.
func (r Root) Validate(requested string) (string, error) {
	requested, err := normalizeRequested(requested)
	if err != nil {
		return "", err
	}

	joined := r.join(requested)
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if !r.contains(joined) {
			return "", outsideError(requested)
		}
		if isMissing(err) {
			return "", apperrors.Newf(apperrors.KindNotFound, "Path %q not found", requested).WithPath(requested)
		}
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to resolve %q", requested), err).WithPath(requested)
	}

	if !HasPathPrefix(resolved, r.dir) {
		return "", outsideError(requested)
	}
	return resolved, nil
}

// contains reports whether a path that could not be fully resolved would
// still land inside the root once its existing components are followed.
func (r Root) contains(joined string) bool {
	if !HasPathPrefix(joined, r.dir) {
		return false
	}
	resolved, err := resolveAllowMissing(joined, 0)
	if err != nil {
		return true
	}
	return HasPathPrefix(resolved, r.dir)
}

// ValidateForWrite resolves requested against the root while tolerating a
// missing leaf and missing intermediate directories. The deepest existing
// ancestor is canonicalized and the missing tail is appended to it.
func (r Root) ValidateForWrite(requested string) (string, error) {
	requested, err := normalizeRequested(requested)
	if err != nil {
		return "", err
	}

	joined := r.join(requested)
	resolved, err := resolveAllowMissing(joined, 0)
	if err != nil {
		if !HasPathPrefix(joined, r.dir) {
			return "", outsideError(requested)
		}
		return "", apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to resolve %q", requested), err).WithPath(requested)
	}

	if !HasPathPrefix(resolved, r.dir) {
		return "", outsideError(requested)
	}
	return resolved, nil
}

// join anchors relative paths at the root. Absolute paths are kept as they
// are so they get compared against the root rather than rebased under it.
func (r Root) join(requested string) string {
	if filepath.IsAbs(requested) {
		return filepath.Clean(requested)
	}
	return filepath.Join(r.dir, requested)
}

func normalizeRequested(requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return ".", nil
	}
	if err := ValidatePathString(requested, MaxPathLength); err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidArguments, "invalid path", err).WithPath(requested)
	}
	return requested, nil
}

func outsideError(requested string) error {
	return apperrors.Newf(apperrors.KindOutsideSandbox,
		"Cannot access %q as it is outside the permitted working directory", requested).WithPath(requested)
}

// ValidatePathString validates raw path input before resolution.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	if maxLen > 0 && len(path) > maxLen {
		return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
	}
	return nil
}

// resolveAllowMissing canonicalizes path, resolving every existing component
// (dangling symlinks included) and appending components that do not exist.
func resolveAllowMissing(path string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", fmt.Errorf("too many levels of symbolic links")
	}

	var tail []string
	current := filepath.Clean(path)
	for {
		info, err := os.Lstat(current)
		if err == nil {
			base, err := filepath.EvalSymlinks(current)
			if err != nil {
				if !isMissing(err) || info.Mode()&fs.ModeSymlink == 0 {
					return "", err
				}
				// Dangling link: follow it by hand so its target is checked too.
				target, err := os.Readlink(current)
				if err != nil {
					return "", err
				}
				if !filepath.IsAbs(target) {
					target = filepath.Join(filepath.Dir(current), target)
				}
				base, err = resolveAllowMissing(target, hops+1)
				if err != nil {
					return "", err
				}
			}
			return filepath.Join(append([]string{base}, tail...)...), nil
		}
		if !isMissing(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(append([]string{current}, tail...)...), nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}

// HasPathPrefix returns true when path is base or lies beneath it. The check
// is segment-aware: /root2 is not within /root.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
