package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psilLang/caos/pkg/sandbox"
)

func replCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Inject scripts into a live world interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "caos - type :help for commands, :quit to exit")
			}
			runREPL(e, e.scheduler(), os.Stdin, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolP("quiet", "q", false, "no banner")
	return cmd
}

func runREPL(e *env, s *sandbox.Scheduler, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "CAOS> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(out)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if !handleCommand(e, s, line, out) {
				return
			}
			continue
		}
		result, err := s.Inject(line)
		if result != "" {
			fmt.Fprintln(out, result)
		}
		if err != nil {
			fmt.Fprintln(out, red(err.Error()))
		}
	}
}

// handleCommand runs a colon command. It returns false to leave the REPL.
func handleCommand(e *env, s *sandbox.Scheduler, line string, out io.Writer) bool {
	parts := strings.Fields(line)
	switch parts[0] {
	case ":quit", ":q", ":exit":
		return false

	case ":help", ":h", ":?":
		fmt.Fprintln(out, `  <script>      inject a script into the world
  :tick [n]     advance the world n ticks (default 1)
  :stats        show world counters
  :dis <script> disassemble a script
  :load <file>  install a script file
  :quit         leave`)

	case ":tick", ":t":
		n := 1
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 0 {
				fmt.Fprintln(out, red("usage: :tick [n]"))
				return true
			}
			n = v
		}
		for i := 0; i < n; i++ {
			s.Tick()
		}
		fmt.Fprintf(out, "tick %d\n", s.World.Clock)

	case ":stats", ":s":
		writeStats(out, s.Stats())

	case ":dis", ":d":
		text := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
		u, err := e.lang.Compile(text)
		if err != nil {
			fmt.Fprintln(out, red(err.Error()))
			return true
		}
		if err := disassemble(out, e.lang, "script", u); err != nil {
			fmt.Fprintln(out, red(err.Error()))
		}

	case ":load", ":l":
		if len(parts) < 2 {
			fmt.Fprintln(out, red("usage: :load <file>"))
			return true
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			fmt.Fprintln(out, red(err.Error()))
			return true
		}
		file, err := e.lang.CompileFile(string(data))
		if err == nil {
			err = s.InstallFile(file)
		}
		if err != nil {
			fmt.Fprintln(out, red(err.Error()))
		}

	default:
		fmt.Fprintln(out, red("unknown command "+parts[0]))
	}
	return true
}
