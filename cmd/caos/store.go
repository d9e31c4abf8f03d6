package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psilLang/caos/pkg/store"
)

// openStore opens the database named by --db, falling back to the
// configured path.
func (e *env) openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = e.cfg.Store.Path
	}
	if path == "" {
		return nil, errors.New("no database: pass --db or set store.path")
	}
	return store.Open(path, e.lang.Recompiler())
}

func saveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Compile a script file and store its event scripts",
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
			db, err := e.openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			batch, err := db.Save(file.Scripts...)
			if err != nil {
				return err
			}
			e.log.Info().Str("file", name).Str("batch", batch).Int("scripts", len(file.Scripts)).Msg("saved")
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("db", "", "database path")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load stored event scripts, checking them against the current language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			db, err := e.openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			units, err := db.LoadAll()
			if err != nil {
				return err
			}
			dis, _ := cmd.Flags().GetBool("dis")
			out := cmd.OutOrStdout()
			for _, u := range units {
				if dis {
					if err := disassemble(out, e.lang, "scrp "+u.Classifier().String(), u); err != nil {
						return err
					}
					continue
				}
				batch, err := db.Batch(u.Classifier())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %5d bytes  %s\n", cyan(u.Classifier()), u.Len(), batch)
			}
			return nil
		},
	}
	cmd.Flags().String("db", "", "database path")
	cmd.Flags().Bool("dis", false, "disassemble each unit")
	return cmd
}
