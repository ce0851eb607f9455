package record

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
	"parlsync/internal/app/client"
)

var createMode string

var CreateCmd = &cobra.Command{
	Use:   "create <collection> [file]",
	Short: "Создать записи",
	Long: `Создание записей из JSON-файла (объект или массив объектов, по умолчанию stdin).

Без --mode записи создаются как есть. С --mode update существующие записи
обновляются измененными полями, с --mode skip пропускаются. При ошибке все
созданные командой записи удаляются.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		path := "-"
		if len(args) == 2 {
			path = args[1]
		}
		docs, err := readDocuments(path)
		if err != nil {
			return err
		}
		collection := args[0]

		result := &client.ReconcileResult{}
		err = app.API().InTx(cmd.Context(), func(ctx context.Context, tx *client.Tx) error {
			if createMode == "" {
				ids, err := tx.CreateMany(ctx, collection, docs)
				result.Created = ids
				return err
			}

			mode, err := client.ParseMode(createMode)
			if err != nil {
				return err
			}
			result, err = tx.Reconcile(ctx, collection, mode, docs...)
			return err
		})
		if err != nil {
			return fmt.Errorf("ошибка создания записей: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Создано: %d, обновлено: %d, пропущено: %d\n",
			len(result.Created), len(result.Updated), len(result.Skipped))
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&createMode, "mode", "m", "", "что делать с существующими записями (update, skip)")
}
