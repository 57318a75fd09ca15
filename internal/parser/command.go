// Package parser splits console input into commands and arguments.
package parser

import (
	"fmt"
	"strings"
)

// SplitCommand splits a single command line into arguments, honoring single
// and double quotes. An unterminated quote is an error.
func SplitCommand(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// ParseScript splits multi-line input into individual command lines,
// dropping blank lines and '#' comment lines. Used for pasted scripts and
// multi-line prompt input.
func ParseScript(text string) []string {
	var commands []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	return commands
}
