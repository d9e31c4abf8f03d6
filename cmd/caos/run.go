package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Install a script file into a fresh world and run it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			text, name, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			ticks, _ := cmd.Flags().GetInt("ticks")

			file, err := e.lang.CompileFile(text)
			if err != nil {
				return fmt.Errorf("compile error in %s: %w", name, err)
			}
			s := e.scheduler()
			if err := s.InstallFile(file); err != nil {
				return fmt.Errorf("runtime error in %s: %w", name, err)
			}
			for i := 0; i < ticks; i++ {
				s.Tick()
			}
			if ticks > 0 {
				printStats(cmd, s.Stats())
			}
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().IntP("ticks", "t", 0, "ticks to simulate after installing")
	return cmd
}

func compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a script file and report errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			text, name, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			file, err := e.lang.CompileFile(text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d event scripts, install %v, remove %v\n",
				name, len(file.Scripts), file.Install != nil, file.Remove != nil)
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}
