package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List stored classifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		names, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete NAME...",
	Short: "Delete stored classifiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		for _, name := range args {
			if err := store.Delete(cmd.Context(), name); err != nil {
				return fmt.Errorf("delete %q: %w", name, err)
			}
		}
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsDeleteCmd)
}
