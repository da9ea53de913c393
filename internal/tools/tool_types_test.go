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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "workbench/internal/errors"
)

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name string
		cap  string
		raw  map[string]interface{}
		want Arguments
	}{
		{
			name: "list without directory",
			cap:  GetFilesInfo,
			raw:  map[string]interface{}{},
			want: ListDirectoryArgs{},
		},
		{
			name: "list with directory",
			cap:  GetFilesInfo,
			raw:  map[string]interface{}{"directory": "pkg"},
			want: ListDirectoryArgs{Directory: "pkg"},
		},
		{
			name: "read",
			cap:  GetFileContent,
			raw:  map[string]interface{}{"file_path": "main.py"},
			want: ReadFileArgs{FilePath: "main.py"},
		},
		{
			name: "write with empty content",
			cap:  WriteFileName,
			raw:  map[string]interface{}{"file_path": "a.txt", "content": ""},
			want: WriteFileArgs{FilePath: "a.txt"},
		},
		{
			name: "run with args decoded from json",
			cap:  RunPythonFile,
			raw:  map[string]interface{}{"file_path": "main.py", "args": []interface{}{"3", "+", "5"}},
			want: RunScriptArgs{FilePath: "main.py", Args: []string{"3", "+", "5"}},
		},
		{
			name: "working_directory dropped",
			cap:  GetFileContent,
			raw:  map[string]interface{}{"file_path": "main.py", "working_directory": "/tmp"},
			want: ReadFileArgs{FilePath: "main.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeArguments(tt.cap, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.cap, got.Capability())
		})
	}
}

func TestDecodeArgumentsErrors(t *testing.T) {
	_, err := DecodeArguments(GetFileContent, map[string]interface{}{"file_path": "  "})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidArguments))
	assert.Contains(t, err.Error(), "'file_path'")

	_, err = DecodeArguments(RunPythonFile, map[string]interface{}{"file_path": "a.py", "args": []interface{}{1}})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidArguments))

	_, err = DecodeArguments("bogus", nil)
	assert.Error(t, err)
}

func TestDecodeArgumentsRequiresPresence(t *testing.T) {
	_, err := DecodeArguments(WriteFileName, map[string]interface{}{"file_path": "main.py"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidArguments))
	assert.Contains(t, err.Error(), "'content'")

	_, err = DecodeArguments(WriteFileName, map[string]interface{}{"file_path": "main.py", "content": nil})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidArguments))

	_, err = DecodeArguments(GetFileContent, map[string]interface{}{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidArguments))
	assert.Contains(t, err.Error(), "'file_path'")

	got, err := DecodeArguments(WriteFileName, map[string]interface{}{"file_path": "empty.txt", "content": ""})
	require.NoError(t, err)
	assert.Equal(t, WriteFileArgs{FilePath: "empty.txt"}, got)
}

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		capability string
		want       []string
	}{
		{GetFilesInfo, nil},
		{GetFileContent, []string{"file_path"}},
		{WriteFileName, []string{"file_path", "content"}},
		{RunPythonFile, []string{"file_path"}},
	}
	for _, tt := range tests {
		t.Run(tt.capability, func(t *testing.T) {
			schema, err := SchemaFor(tt.capability)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, RequiredFields(schema))
		})
	}

	_, err := SchemaFor("bogus")
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, RequiredFields(map[string]interface{}{"required": []interface{}{"a", 1}}))
	assert.Nil(t, RequiredFields(map[string]interface{}{}))
}

func TestParametersFor(t *testing.T) {
	for _, args := range []Arguments{ListDirectoryArgs{}, ReadFileArgs{}, WriteFileArgs{}, RunScriptArgs{}} {
		params, err := ParametersFor(args)
		require.NoError(t, err, args.Capability())
		assert.NotEmpty(t, params, args.Capability())
	}

	_, err := ParametersFor(nil)
	assert.Error(t, err)
}
