package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psilLang/caos/pkg/sandbox"
)

func printStats(cmd *cobra.Command, st sandbox.Stats) {
	writeStats(cmd.OutOrStdout(), st)
}

func writeStats(w io.Writer, st sandbox.Stats) {
	fmt.Fprintf(w, "tick %d: %d agents, %d food, %d scripts, %d delivered, %d pending, %s\n",
		st.Tick, st.Agents, st.Food, st.Scripts, st.Delivered, st.Pending, faults(st.Faults))
}

func faults(n int) string {
	s := fmt.Sprintf("%d faults", n)
	if n > 0 {
		return red(s)
	}
	return s
}
