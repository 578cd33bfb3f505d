// File: cmd/locator/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup Helpers ---

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

// recordingRoot returns a root command that records the args of every execution.
func recordingRoot(calls *[][]string) func() *cobra.Command {
	return func() *cobra.Command {
		root := &cobra.Command{Use: "locator-cli", SilenceUsage: true, SilenceErrors: true}
		root.AddCommand(&cobra.Command{
			Use: "echo",
			RunE: func(c *cobra.Command, args []string) error {
				*calls = append(*calls, args)
				fmt.Fprintln(c.OutOrStdout(), strings.Join(args, ","))
				return nil
			},
		}, &cobra.Command{
			Use:  "fail",
			RunE: func(*cobra.Command, []string) error { return errors.New("boom") },
		}, &cobra.Command{
			Use: "panic",
			Run: func(*cobra.Command, []string) { panic("kaboom") },
		})
		return root
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("aborted: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("failed")))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"generate -f page.html", []string{"generate", "-f", "page.html"}},
		{"  verify   --value  '#a b'  x.html ", []string{"verify", "--value", "#a b", "x.html"}},
		{`generate -t "//a[text()='Sign in']"`, []string{"generate", "-t", "//a[text()='Sign in']"}},
		{`--value ''`, []string{"--value", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, splitArgs(tt.line))
		})
	}
}

func TestRunShell(t *testing.T) {
	orig := newRootCommand
	defer func() { newRootCommand = orig }()
	var calls [][]string
	newRootCommand = recordingRoot(&calls)

	in := strings.NewReader("echo a 'b c'\n\nfail\npanic\necho again\nquit\necho never\n")
	var out, errOut bytes.Buffer
	require.NoError(t, runShell(context.Background(), in, &out, &errOut))

	assert.Equal(t, [][]string{{"a", "b c"}, {"again"}}, calls, "each line gets a fresh command and stops at quit")
	assert.Contains(t, out.String(), "locator-cli > ")
	assert.Contains(t, out.String(), "Exiting locator-cli.")
	assert.Contains(t, errOut.String(), "Error: boom")
	assert.Contains(t, errOut.String(), "Command panicked: kaboom", "a panicking command does not end the shell")
}

func TestRunShell_StopsWhenContextIsCancelled(t *testing.T) {
	orig := newRootCommand
	defer func() { newRootCommand = orig }()
	var calls [][]string
	newRootCommand = recordingRoot(&calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, runShell(ctx, strings.NewReader("echo x\n"), &bytes.Buffer{}, &bytes.Buffer{}))
	assert.Empty(t, calls)
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes the panic log", func(t *testing.T) {
		var written string
		var code int
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("test panic")
		}()

		assert.Contains(t, written, "panic: test panic")
		assert.Contains(t, written, "goroutine", "the stack trace is included")
		assert.Equal(t, 2, code)
	})

	t.Run("falls back when the log cannot be written", func(t *testing.T) {
		var code int
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("another")
		}()
		assert.Equal(t, 2, code)
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}
