package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/caos"
)

func disCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a script file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			text, _, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			file, err := e.lang.CompileFile(text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if file.Install != nil {
				if err := disassemble(out, e.lang, "install", file.Install); err != nil {
					return err
				}
			}
			for _, u := range file.Scripts {
				if err := disassemble(out, e.lang, "scrp "+u.Classifier().String(), u); err != nil {
					return err
				}
			}
			if file.Remove != nil {
				return disassemble(out, e.lang, "rscr", file.Remove)
			}
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func disassemble(w io.Writer, lang *caos.Language, title string, u *bytecode.Unit) error {
	text, err := lang.Disassemble(u)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s  %s\n%s\n", cyan(title), yellow(fmt.Sprintf("(%d bytes)", u.Len())), text)
	return nil
}
