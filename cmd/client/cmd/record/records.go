package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"parlsync/internal/domain/document"
)

// RecordCmd - родительская команда для всех операций с записями
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Операции с записями хранилища",
	Long:  `Получение, поиск, создание, обновление и удаление записей в коллекциях хранилища.`,
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// readDocuments читает объект или массив объектов из файла ("-" означает stdin)
func readDocuments(path string) ([]document.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия файла: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения: %w", err)
	}

	var docs []document.Document
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	doc, err := document.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("ожидался JSON-объект или массив: %w", err)
	}
	return []document.Document{doc}, nil
}
