package sync

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
	"parlsync/internal/app/client"
)

var jsonOutput bool

var SyncCmd = &cobra.Command{
	Use:   "sync <job.json>",
	Short: "Выполнить задание синхронизации",
	Long: `Выполняет задание синхронизации: пакеты записей по коллекциям.

Каждый пакет сверяется в своей единице работы. Ошибка пакета откатывает
только его, задание продолжается со следующего пакета. Ход задания
записывается в коллекцию журнала заданий хранилища.

Путь "-" читает задание из stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		result, err := app.RunJob(cmd.Context(), args[0])
		if result != nil {
			if jsonOutput {
				if pErr := printJSON(cmd.OutOrStdout(), result); pErr != nil {
					return pErr
				}
			} else {
				printResult(cmd.OutOrStdout(), result)
			}
		}
		if err != nil {
			if errors.Is(err, client.ErrRollbackFailed) {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  Откат не завершен, см. parlsync journal list")
			}
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}
		if !result.Success {
			return fmt.Errorf("синхронизация завершена с ошибками (%d)", len(result.Errors))
		}
		return nil
	},
}

func printResult(out io.Writer, r *client.SyncResult) {
	status := "✅"
	if !r.Success {
		status = "⚠️ "
	}
	fmt.Fprintf(out, "%s %s: пакетов %d за %.2f сек\n", status, r.Label, r.Batches, r.Duration.Seconds())
	fmt.Fprintf(out, "  Создано:    %d\n", r.Created)
	fmt.Fprintf(out, "  Обновлено:  %d\n", r.Updated)
	fmt.Fprintf(out, "  Пропущено:  %d\n", r.Skipped)

	if len(r.Errors) == 0 {
		return
	}
	fmt.Fprintf(out, "\n❌ Ошибки (%d):\n", len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  пакет %d (%s): %s\n", e.Batch, e.Collection, e.Error)
		if len(e.Issues) > 0 {
			fmt.Fprintf(out, "    %s\n", e.Issues)
		}
		for i, issues := range e.ItemIssues {
			fmt.Fprintf(out, "    #%d %s\n", i, issues)
		}
	}
}

func init() {
	SyncCmd.Flags().BoolVar(&jsonOutput, "json", false, "вывод результата в формате JSON")
}
