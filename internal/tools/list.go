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
	"os"
	"strings"

	apperrors "workbench/internal/errors"
	"workbench/internal/paths"
)

// Entry describes one immediate child of a listed directory.
type Entry struct {
	Name      string
	SizeBytes int64
	IsDir     bool
}

// ListDirectory returns the immediate children of dir in filesystem order.
// A stat failure on any entry fails the whole listing.
func ListDirectory(root paths.Root, dir string, limits Limits) ([]Entry, error) {
	limits = normalizeLimits(limits)

	resolved, err := root.Validate(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to stat %q", dir), err).WithPath(dir)
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.KindNotADirectory, "%q is not a directory", dir).WithPath(dir)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to open %q", dir), err).WithPath(dir)
	}
	defer f.Close()

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to read %q", dir), err).WithPath(dir)
	}
	if len(dirEntries) > limits.MaxDirectoryEntries {
		return nil, apperrors.Newf(apperrors.KindIO, "directory %q has %d entries, more than the limit of %d",
			dir, len(dirEntries), limits.MaxDirectoryEntries).WithPath(dir)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		// Stat follows symlinks so sizes match what a reader would see.
		info, err := os.Stat(resolved + string(os.PathSeparator) + de.Name())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindIO, fmt.Sprintf("failed to stat %q in %q", de.Name(), dir), err).WithPath(dir)
		}
		entries = append(entries, Entry{
			Name:      de.Name(),
			SizeBytes: info.Size(),
			IsDir:     info.IsDir(),
		})
	}
	return entries, nil
}

// FormatEntries renders a listing one entry per line.
func FormatEntries(entries []Entry) string {
	if len(entries) == 0 {
		return "Directory is empty"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- %s: file_size=%d bytes, is_dir=%s", e.Name, e.SizeBytes, pyBool(e.IsDir)))
	}
	return strings.Join(lines, "\n")
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
