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

package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench/internal/tools"
)

func TestParseApprovalInput(t *testing.T) {
	cases := []struct {
		input    string
		expected approvalDecision
	}{
		{"", approvalYes},
		{" ", approvalYes},
		{"Y", approvalYes},
		{"ye", approvalYes},
		{"yes", approvalYes},
		{"n", approvalNo},
		{"no", approvalNo},
		{"a", approvalAlways},
		{"alw", approvalAlways},
		{"always", approvalAlways},
		{"maybe", approvalUnknown},
		{"yess", approvalUnknown},
		{"nope", approvalUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, parseApprovalInput(tc.input), "input %q", tc.input)
	}
}

func TestApproverAlwaysPersists(t *testing.T) {
	prompts := 0
	approver := newApprover(func(_ context.Context, capability string, _ tools.Arguments) (approvalDecision, error) {
		prompts++
		if capability == tools.WriteFileName {
			return approvalAlways, nil
		}
		return approvalNo, nil
	})
	ctx := context.Background()
	args := tools.WriteFileArgs{FilePath: "a.txt", Content: "x"}

	ok, err := approver.Approve(ctx, tools.WriteFileName, args)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = approver.Approve(ctx, tools.WriteFileName, args)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, prompts)

	ok, err = approver.Approve(ctx, tools.RunPythonFile, tools.RunScriptArgs{FilePath: "main.py"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, prompts)
}

func TestAskApprovalRepromptsOnUnknownInput(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("maybe\nno\n"))

	decision, err := askApproval(context.Background(), reader, &out, tools.RunPythonFile, tools.RunScriptArgs{FilePath: "main.py"})
	require.NoError(t, err)
	assert.Equal(t, approvalNo, decision)
	assert.Equal(t, 2, strings.Count(out.String(), `Allow run_python_file with args {"file_path":"main.py"}? (Yes/no/always): `))
	assert.Contains(t, out.String(), "Please enter yes, no, or always.")
}

func TestAskApprovalEOF(t *testing.T) {
	var out bytes.Buffer
	decision, err := askApproval(context.Background(), bufio.NewReader(strings.NewReader("")), &out, tools.GetFilesInfo, tools.ListDirectoryArgs{})
	assert.Error(t, err)
	assert.Equal(t, approvalNo, decision)
	assert.Contains(t, out.String(), "Allow get_files_info? ")
}

func TestDescribeArgsHidesContent(t *testing.T) {
	assert.Equal(t, ` with args {"file_path":"a.txt"}`, describeArgs(tools.WriteFileArgs{FilePath: "a.txt", Content: "secret"}))
	assert.Equal(t, "", describeArgs(tools.ListDirectoryArgs{}))
	assert.Equal(t, "", describeArgs(nil))
}
