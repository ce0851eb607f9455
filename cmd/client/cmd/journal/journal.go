package journal

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
)

// JournalCmd - единицы работы, сохраненные в локальном журнале
var JournalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Локальный журнал единиц работы",
	Long: `Журнал хранит созданные записи незавершенных единиц работы. Если откат
не удался, оставшиеся записи можно удалить командой journal rollback.`,
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать незавершенные единицы работы",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		entries, err := app.PendingTx(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Журнал пуст")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TX\tСОСТОЯНИЕ\tНАЧАТА\tЗАПИСЕЙ")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.TxID, e.State, e.StartedAt.Local().Format(time.DateTime), len(e.Records))
		}
		return w.Flush()
	},
}

var RollbackCmd = &cobra.Command{
	Use:   "rollback <tx>",
	Short: "Удалить записи, оставшиеся от единицы работы",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.API().ResumeRollback(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка отката %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Единица работы %s откачена\n", args[0])
		return nil
	},
}
