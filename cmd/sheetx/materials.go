package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
)

func newMaterialsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "Manage the raw-material list",
		Long: `Manage the raw-material names embedded in the constrained extraction prompt.

Available subcommands:
  list   - Print the list
  add    - Add a name
  remove - Remove a name`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the raw-material list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := openRegistry(root)
			if err != nil {
				return err
			}
			names, err := reg.Load()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a raw-material name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(root)
			if err != nil {
				return err
			}
			added, err := reg.Add(args[0])
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%q already listed\n", args[0])
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a raw-material name",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg, err := openRegistry(root)
			if err != nil {
				return err
			}
			removed, err := reg.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%q is not listed", args[0])
			}
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func openRegistry(root *rootOptions) (*repository.MaterialRegistry, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	return repository.NewMaterialRegistry(cfg.Storage.MaterialsPath, newLogger("warn")), nil
}
