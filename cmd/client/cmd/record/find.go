package record

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"parlsync/cmd/client/cmd/types"
	"parlsync/internal/app/client"
	"parlsync/internal/domain/document"
)

var (
	findWhere      string
	findSort       string
	findMaxResults int
	findPage       int
	findAll        bool
	findFormat     string
	findFields     []string
)

var FindCmd = &cobra.Command{
	Use:   "find <collection>",
	Short: "Найти записи",
	Long: `Поиск записей коллекции.

Условие --where задается JSON-объектом, например '{"age": {"$in": [20, 21]}}'.
С флагом --all клиент обходит все страницы выдачи.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		query, err := buildQuery()
		if err != nil {
			return err
		}

		env, err := app.API().Find(cmd.Context(), args[0], query)
		if err != nil {
			return fmt.Errorf("ошибка поиска: %w", err)
		}

		switch findFormat {
		case "json":
			return printJSON(cmd.OutOrStdout(), env.Body)
		default:
			return printTable(cmd.OutOrStdout(), env, findFields)
		}
	},
}

func buildQuery() (client.Query, error) {
	query := client.Query{}
	if findWhere != "" {
		where, err := document.FromBytes([]byte(findWhere))
		if err != nil {
			return nil, fmt.Errorf("неверное условие --where: %w", err)
		}
		query[client.QueryWhere] = where
	}
	if findSort != "" {
		query[client.QuerySort] = findSort
	}
	if findMaxResults > 0 {
		query[client.QueryMaxResults] = findMaxResults
	}
	if findPage > 0 {
		query[client.QueryPage] = findPage
	}
	if findAll {
		query[client.QueryAll] = true
	}
	return query, nil
}

func printTable(out io.Writer, env *client.Envelope, fields []string) error {
	if len(env.Items) == 0 {
		fmt.Fprintln(out, "Записи не найдены")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := append([]string{"ID"}, fields...)
	header = append(header, "ОБНОВЛЕНА")
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, item := range env.Items {
		row := []string{item.ID()}
		for _, f := range fields {
			row = append(row, cast.ToString(item.Get(f)))
		}
		row = append(row, item.GetString("_updated"))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if env.Meta != nil {
		fmt.Fprintf(out, "\nВсего: %d, страница %d, на странице до %d\n", env.Meta.Total, env.Meta.Page, env.Meta.MaxResults)
	}
	return nil
}

func init() {
	FindCmd.Flags().StringVarP(&findWhere, "where", "w", "", "условие поиска (JSON)")
	FindCmd.Flags().StringVarP(&findSort, "sort", "s", "", "сортировка, например -age,name")
	FindCmd.Flags().IntVar(&findMaxResults, "max-results", 0, "записей на странице")
	FindCmd.Flags().IntVar(&findPage, "page", 0, "номер страницы")
	FindCmd.Flags().BoolVar(&findAll, "all", false, "обойти все страницы")
	FindCmd.Flags().StringVarP(&findFormat, "output", "o", "table", "формат вывода (table, json)")
	FindCmd.Flags().StringSliceVarP(&findFields, "fields", "f", nil, "поля для табличного вывода")
}
