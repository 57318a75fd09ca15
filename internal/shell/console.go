// Package shell provides the interactive console's line editing (prompt,
// history, completion) and the shell-escape used to run ad-hoc commands
// without leaving the console.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// ErrInterrupted is returned when the user cancels input with Ctrl-C.
var ErrInterrupted = errors.New("input interrupted")

// ErrEOF is returned when input ends (Ctrl-D or closed stdin).
var ErrEOF = errors.New("end of input")

// Console wraps a readline instance with persistent history and Tab
// completion over the tool's command names.
type Console struct {
	rl *readline.Instance
}

// NewConsole creates a console. historyFile may be empty (history is then
// session-only). commands seeds Tab completion.
func NewConsole(historyFile string, commands []string) (*Console, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, cmd := range commands {
		items = append(items, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize console: %w", err)
	}
	return &Console{rl: rl}, nil
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// ReadLine reads one line with the given prompt.
func (c *Console) ReadLine(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrInterrupted
	case errors.Is(err, io.EOF):
		return "", ErrEOF
	case err != nil:
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadScript reads lines until a blank line or EOF, for multi-line paste
// mode. The raw lines are returned unparsed.
func (c *Console) ReadScript() ([]string, error) {
	var lines []string
	for {
		line, err := c.ReadLine("  ")
		if err != nil {
			if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrEOF) {
				return lines, nil
			}
			return lines, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// shellTimeout bounds shell-escape commands so a hung command cannot wedge
// the console.
const shellTimeout = 60 * time.Second

// RunShellCommand executes a shell command line and streams its output to
// the terminal. A non-zero exit or timeout is reported as an error.
func RunShellCommand(command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shellBinary(), "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("command timed out after %s", shellTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("command exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run command: %w", err)
	}
	return nil
}

func shellBinary() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}
