package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "script text")
	cmd.Flags().Bool("stdin", false, "read script from stdin")
}

// readSource returns the script named by --code, --stdin, or the first
// argument, and a name for it in messages.
func readSource(cmd *cobra.Command, args []string) (string, string, error) {
	code, _ := cmd.Flags().GetString("code")
	codeSet := cmd.Flags().Changed("code")
	stdin, _ := cmd.Flags().GetBool("stdin")

	count := 0
	if codeSet {
		count++
	}
	if stdin {
		count++
	}
	if len(args) > 0 {
		count++
	}
	switch {
	case count > 1:
		return "", "", errors.New("multiple input sources specified")
	case count == 0:
		return "", "", errors.New("no input provided")
	case codeSet:
		return code, "<code>", nil
	case stdin:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), args[0], nil
}
