package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
)

var GetCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Показать запись",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		doc, err := app.API().Get(cmd.Context(), args[0], args[1], nil)
		if err != nil {
			return fmt.Errorf("ошибка получения записи: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}
