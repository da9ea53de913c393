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
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Capability names exposed to the controller.
const (
	GetFilesInfo   = "get_files_info"
	GetFileContent = "get_file_content"
	WriteFileName  = "write_file"
	RunPythonFile  = "run_python_file"
)

// injectedArgument is supplied by the host, never by the controller. It is
// dropped from controller arguments if present.
const injectedArgument = "working_directory"

// Arguments is the closed set of argument shapes, one per capability.
type Arguments interface {
	Capability() string
	Validate() error
	isArguments()
}

// ListDirectoryArgs are the arguments of get_files_info.
type ListDirectoryArgs struct {
	Directory string `json:"directory,omitempty" jsonschema:"description=The directory to list files from, relative to the working directory. Lists the working directory itself when omitted."`
}

// ReadFileArgs are the arguments of get_file_content.
type ReadFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=The path to the file to be read, relative to the working directory."`
}

// WriteFileArgs are the arguments of write_file.
type WriteFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=The path to the file to be written, relative to the working directory."`
	Content  string `json:"content" jsonschema:"description=The content to write to the file."`
}

// RunScriptArgs are the arguments of run_python_file.
type RunScriptArgs struct {
	FilePath string   `json:"file_path" jsonschema:"description=The path to the Python file to be executed, relative to the working directory."`
	Args     []string `json:"args,omitempty" jsonschema:"description=A list of string arguments to pass to the Python script."`
}

func (ListDirectoryArgs) Capability() string { return GetFilesInfo }
func (ReadFileArgs) Capability() string      { return GetFileContent }
func (WriteFileArgs) Capability() string     { return WriteFileName }
func (RunScriptArgs) Capability() string     { return RunPythonFile }

func (ListDirectoryArgs) isArguments() {}
func (ReadFileArgs) isArguments()      {}
func (WriteFileArgs) isArguments()     {}
func (RunScriptArgs) isArguments()     {}

func (a ListDirectoryArgs) Validate() error { return nil }

func (a ReadFileArgs) Validate() error {
	return requireString("file_path", a.FilePath)
}

func (a WriteFileArgs) Validate() error {
	return requireString("file_path", a.FilePath)
}

func (a RunScriptArgs) Validate() error {
	return requireString("file_path", a.FilePath)
}

func requireString(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing or invalid '%s' parameter", key)
	}
	return nil
}

// DecodeArguments converts a controller-supplied mapping into the argument
// variant of the named capability. Unknown keys and mistyped values are
// rejected; keys the capability's schema marks as required must be present.
func DecodeArguments(name string, raw map[string]interface{}) (Arguments, error) {
	var target Arguments
	switch name {
	case GetFilesInfo:
		target = &ListDirectoryArgs{}
	case GetFileContent:
		target = &ReadFileArgs{}
	case WriteFileName:
		target = &WriteFileArgs{}
	case RunPythonFile:
		target = &RunScriptArgs{}
	default:
		return nil, fmt.Errorf("unknown capability %q", name)
	}

	input := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		if key == injectedArgument {
			continue
		}
		input[key] = value
	}

	// Presence, not emptiness: an explicit "" content is a valid empty write.
	schema, err := SchemaFor(name)
	if err != nil {
		return nil, err
	}
	for _, key := range RequiredFields(schema) {
		if value, ok := input[key]; !ok || value == nil {
			return nil, NewArgumentError(name, fmt.Errorf("missing or invalid '%s' parameter", key))
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      target,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, NewArgumentError(name, err)
	}

	args := deref(target)
	if err := args.Validate(); err != nil {
		return nil, NewArgumentError(name, err)
	}
	return args, nil
}

func deref(args Arguments) Arguments {
	switch v := args.(type) {
	case *ListDirectoryArgs:
		return *v
	case *ReadFileArgs:
		return *v
	case *WriteFileArgs:
		return *v
	case *RunScriptArgs:
		return *v
	}
	return args
}
