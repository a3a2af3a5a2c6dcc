package tcc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "add file",
			err:  &Error{Kind: KindAddFile, File: "main.c", Message: "file not found"},
			want: "tcc: add file error: main.c: file not found",
		},
		{
			name: "compile omits source",
			err:  &Error{Kind: KindCompile, Source: "int x", Message: "';' expected"},
			want: "tcc: compile error: ';' expected",
		},
		{
			name: "run status",
			err:  &Error{Kind: KindRun, Status: -1},
			want: "tcc: run error (status -1)",
		},
		{
			name: "kind only",
			err:  &Error{Kind: KindRelocate},
			want: "tcc: relocate error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("build: %w", &Error{Kind: KindCompile, Message: "x"})

	assert.ErrorIs(t, err, ErrCompile)
	assert.NotErrorIs(t, err, ErrAddFile)
	assert.False(t, errors.Is(err, ErrNotBuilt))
}

func TestDiagnosticsWithoutSession(t *testing.T) {
	err := invalidArgument(nil, "bad %s", "input")
	assert.Nil(t, err.Diagnostics())
	assert.Equal(t, "tcc: invalid argument: bad input", err.Error())
}
