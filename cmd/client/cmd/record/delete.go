package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Удалить запись",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.API().Delete(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Запись %s/%s удалена\n", args[0], args[1])
		return nil
	},
}
