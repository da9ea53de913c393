package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
)

func TestClassifyReadlineError(t *testing.T) {
	assert.Equal(t, readlineUnhandled, classifyReadlineError("x", nil))
	assert.Equal(t, readlineContinue, classifyReadlineError("", readline.ErrInterrupt))
	assert.Equal(t, readlineExit, classifyReadlineError("", io.EOF))
	assert.Equal(t, readlineExit, classifyReadlineError("  ", io.EOF))
	assert.Equal(t, readlineContinue, classifyReadlineError("partial", io.EOF))
	assert.Equal(t, readlineUnhandled, classifyReadlineError("", errors.New("boom")))
}

func TestIsExitCommand(t *testing.T) {
	for _, line := range []string{"exit", " quit ", "/exit", "QUIT"} {
		assert.True(t, isExitCommand(line), line)
	}
	assert.False(t, isExitCommand("exit the loop"))
}

func TestOperationCanceler(t *testing.T) {
	var c operationCanceler
	assert.False(t, c.Cancel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Set(cancel)
	assert.True(t, c.Cancel())
	assert.Error(t, ctx.Err())

	c.Clear()
	assert.False(t, c.Cancel())
}
