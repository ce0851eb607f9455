package client

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"parlsync/internal/domain/document"
)

// createChunked отправляет записи пакетами по BulkChunkSize. Id уже созданных
// пакетов остаются в журнале, даже если следующий пакет упал.
func (t *Tx) createChunked(ctx context.Context, collection string, docs []document.Document) ([]string, error) {
	chunks := lo.Chunk(docs, t.api.cfg.BulkChunkSize)
	ids := make([]string, 0, len(docs))

	for i, chunk := range chunks {
		chunkIDs, err := t.api.postMany(ctx, collection, chunk)
		t.record(ctx, collection, chunkIDs...)
		ids = append(ids, chunkIDs...)

		if err != nil {
			return ids, fmt.Errorf("chunk %d/%d of %s: %w", i+1, len(chunks), collection, err)
		}
		if len(chunkIDs) != len(chunk) {
			t.log.Error("Пакет сохранен не полностью, нужна ручная сверка",
				"collection", collection,
				"sent", len(chunk),
				"ids", len(chunkIDs),
			)
			return ids, &PartialBatchError{Collection: collection, Sent: len(chunk), IDs: chunkIDs}
		}
	}

	return ids, nil
}
