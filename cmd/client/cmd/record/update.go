package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
)

var replace bool

var UpdateCmd = &cobra.Command{
	Use:   "update <collection> <id> [file]",
	Short: "Обновить запись",
	Long: `Частичное обновление записи полями из JSON-объекта (по умолчанию stdin).
С --replace запись заменяется целиком.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		path := "-"
		if len(args) == 3 {
			path = args[2]
		}
		docs, err := readDocuments(path)
		if err != nil {
			return err
		}
		if len(docs) != 1 {
			return fmt.Errorf("ожидался один объект, получено %d", len(docs))
		}

		if err := app.API().Update(cmd.Context(), args[0], args[1], docs[0], replace); err != nil {
			return fmt.Errorf("ошибка обновления записи: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Запись %s/%s обновлена\n", args[0], args[1])
		return nil
	},
}

func init() {
	UpdateCmd.Flags().BoolVar(&replace, "replace", false, "заменить запись целиком (PUT)")
}
