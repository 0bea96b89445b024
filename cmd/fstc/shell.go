package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

const shellHelp = `commands:
  get <key>            value offset and bytes for a key
  first                smallest key
  last                 greatest key
  lastle <bound>       greatest key <= bound
  range [lo] [hi]      entries in [lo, hi] (inclusive; omit for unbounded)
  len                  number of keys
  info                 store statistics
  help                 this help
  exit / quit / q      leave the shell
`

// runShell drives an interactive session over a mapped store.
func runShell(c *fstcache.Cache, _ []string) error {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()

	line.SetCtrlCAborts(true)

	fmt.Printf("fstc shell: %d keys, %d value bytes (type 'help')\n", c.Len(), len(c.ValueBytes()))

	for {
		input, err := line.Prompt("fstc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}

			// EOF ends the session.
			fmt.Println()

			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		fields := strings.Fields(input)
		cmd, args := fields[0], fields[1:]

		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			return nil
		}

		err = shellDispatch(c, cmd, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func shellDispatch(c *fstcache.Cache, cmd string, args []string) error {
	switch cmd {
	case "get":
		if len(args) != 1 {
			return errors.New("usage: get <key>")
		}

		return printGet(os.Stdout, c, []byte(args[0]))

	case "first":
		return printEdge(os.Stdout, c, false)

	case "last":
		return printEdge(os.Stdout, c, true)

	case "lastle":
		if len(args) != 1 {
			return errors.New("usage: lastle <bound>")
		}

		return printLastLE(os.Stdout, c, []byte(args[0]))

	case "range":
		if len(args) > 2 {
			return errors.New("usage: range [lo] [hi]")
		}

		return printRange(os.Stdout, c, args)

	case "len":
		fmt.Println(c.Len())

		return nil

	case "info":
		return printInfo(os.Stdout, c)

	case "help":
		fmt.Print(shellHelp)

		return nil

	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
}
