package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mathwro/azrole/internal/parser"
	"github.com/mathwro/azrole/internal/shell"
)

// consoleCommands seeds Tab completion in the interactive console.
var consoleCommands = []string{
	"create", "load", "load-azure", "merge", "remove",
	"set-name", "set-description", "set-scopes",
	"list", "delete", "view", "save", "publish",
	"list-azure", "view-azure", "search-permissions", "import-azure-permissions",
	"subscriptions", "use-subscription",
	"help", "paste", "shell", "exit", "quit",
}

func (c *CLI) runConsole(ctx context.Context) error {
	if c.console != nil {
		c.colors.Warnf("Already in console mode.")
		return nil
	}

	console, err := shell.NewConsole(c.cfg.HistoryFile, consoleCommands)
	if err != nil {
		return err
	}
	c.console = console
	defer func() {
		c.console = nil
		console.Close()
	}()

	c.colors.Header.Println("Azure Custom Role Designer - Console Mode")
	fmt.Println("Type 'help' for available commands, 'exit' to leave.")
	fmt.Println()

	for {
		line, err := console.ReadLine(c.contextPrompt())
		if err != nil {
			if errors.Is(err, shell.ErrInterrupted) {
				continue
			}
			if errors.Is(err, shell.ErrEOF) {
				fmt.Println("Goodbye!")
				return nil
			}
			return err
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if done := c.handleConsoleLine(ctx, line); done {
			fmt.Println("Goodbye!")
			return nil
		}
	}
}

// contextPrompt renders the current session state into the prompt line.
func (c *CLI) contextPrompt() string {
	role := "(none)"
	if c.session.Role != nil {
		role = c.session.Role.Name
	}
	sub := "(none)"
	if c.session.SubscriptionID != "" {
		sub = c.session.SubscriptionID
	}
	return fmt.Sprintf("[Role: %s | Subscription: %s]\n> ", role, sub)
}

// handleConsoleLine executes one console line. It returns true when the
// console should exit.
func (c *CLI) handleConsoleLine(ctx context.Context, line string) bool {
	switch {
	case line == "exit" || line == "quit":
		return true

	case line == "help":
		c.printConsoleHelp()
		return false

	case strings.HasPrefix(line, "help "):
		topic := strings.TrimSpace(strings.TrimPrefix(line, "help"))
		if err := c.Dispatch(ctx, []string{"help", topic}); err != nil {
			c.colors.Errorf("%v", err)
		}
		return false

	case line == "paste":
		c.runPasteMode(ctx)
		return false

	case line == "console":
		c.colors.Warnf("Already in console mode.")
		return false

	case strings.HasPrefix(line, "!"):
		c.runShellEscape(strings.TrimSpace(line[1:]))
		return false

	case strings.HasPrefix(line, "shell "):
		c.runShellEscape(strings.TrimSpace(strings.TrimPrefix(line, "shell")))
		return false
	}

	args, err := parser.SplitCommand(line)
	if err != nil {
		c.colors.Errorf("%v", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	if err := c.Dispatch(ctx, args); err != nil {
		c.colors.Errorf("%v", err)
	}
	return false
}

// runPasteMode reads a block of commands and executes them in order. A
// failing command does not stop the rest of the block.
func (c *CLI) runPasteMode(ctx context.Context) {
	fmt.Println("Paste commands (one per line), then an empty line to run them:")
	lines, err := c.console.ReadScript()
	if err != nil {
		c.colors.Errorf("%v", err)
		return
	}

	commands := parser.ParseScript(strings.Join(lines, "\n"))
	if len(commands) == 0 {
		fmt.Println("Nothing to run.")
		return
	}

	for _, command := range commands {
		c.colors.Dim.Printf(">> %s\n", command)
		args, err := parser.SplitCommand(command)
		if err != nil {
			c.colors.Errorf("%v", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := c.Dispatch(ctx, args); err != nil {
			c.colors.Errorf("%v", err)
		}
	}
	c.colors.Successf("Executed %d command(s)", len(commands))
}

func (c *CLI) runShellEscape(command string) {
	if command == "" {
		c.colors.Warnf("Usage: !<command> or shell <command>")
		return
	}
	if err := shell.RunShellCommand(command); err != nil {
		c.colors.Errorf("%v", err)
	}
}

func (c *CLI) printConsoleHelp() {
	c.colors.Header.Println("Available Commands")
	help := [][2]string{
		{"create [name]", "Create a new custom role"},
		{"load <name|path>", "Load a role from file, local storage, or Azure"},
		{"load-azure <name>", "Load a role from Azure"},
		{"merge <roles> [--filter] [--filter-type]", "Merge permissions from other roles"},
		{"remove --filter <pattern> [--filter-type]", "Remove permissions from the current role"},
		{"set-name --name <name>", "Rename the current role"},
		{"set-description --description <text>", "Change the description"},
		{"set-scopes --scopes <scopes>", "Change assignable scopes (comma-separated)"},
		{"list [--name]", "List local roles, or show one"},
		{"delete <name> | --filter <pattern>", "Delete local role file(s)"},
		{"view [--all]", "View the current role"},
		{"save [name] [--output] [--overwrite]", "Save the current role"},
		{"publish [name]", "Publish the current role to Azure"},
		{"list-azure", "List custom roles in the subscription"},
		{"view-azure <name> [--filter]", "View an Azure role's permissions"},
		{"search-permissions <pattern>", "Search Azure permissions across roles"},
		{"import-azure-permissions <pattern>", "Import matching Azure permissions"},
		{"subscriptions", "List available subscriptions"},
		{"use-subscription <id|name>", "Switch subscription"},
		{"help [command]", "Show help, or detailed help for one command"},
		{"paste", "Run a pasted block of commands"},
		{"exit / quit", "Leave the console"},
	}
	for _, entry := range help {
		fmt.Printf("  %-45s %s\n", entry[0], entry[1])
	}
	fmt.Println()
	fmt.Println("Prefix a line with '!' (or use 'shell <cmd>') to run a shell command.")
	fmt.Println("Filters use '*' as a wildcard; without '*' the match is exact (case-insensitive).")
}
