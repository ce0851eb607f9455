package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"parlsync/internal/domain/document"
)

// Статусы записи о задании в журнальной коллекции
const (
	JobRunning  = "running"
	JobFinished = "finished"
	JobFailed   = "failed"
)

var ErrSyncInProgress = errors.New("синхронизация уже выполняется")

// Batch - набор записей одной коллекции, сверяемый в одной единице работы
type Batch struct {
	Collection string              `json:"collection"`
	Mode       string              `json:"mode,omitempty"`
	Records    []document.Document `json:"records"`
}

// Job - задание синхронизации: последовательность пакетов
type Job struct {
	Label   string  `json:"label"`
	Batches []Batch `json:"batches"`
}

// LoadJob читает задание из JSON-файла ("-" означает stdin)
func LoadJob(path string) (*Job, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия задания: %w", err)
		}
		defer f.Close()
		r = f
	}
	return ParseJob(r)
}

// ParseJob разбирает задание и проверяет его
func ParseJob(r io.Reader) (*Job, error) {
	var job Job
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("ошибка разбора задания: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate проверяет задание до отправки первого запроса
func (j *Job) Validate() error {
	if j.Label == "" {
		j.Label = "sync"
	}
	for i, b := range j.Batches {
		if b.Collection == "" {
			return fmt.Errorf("пакет %d: не указана коллекция", i)
		}
		if _, err := ParseMode(b.Mode); err != nil {
			return fmt.Errorf("пакет %d: %w", i, err)
		}
	}
	return nil
}

// SyncError ошибка пакета, после которой задание продолжилось
type SyncError struct {
	Batch      int                       `json:"batch"`
	Collection string                    `json:"collection"`
	Error      string                    `json:"error"`
	Issues     document.Document         `json:"issues,omitempty"`
	ItemIssues map[int]document.Document `json:"item_issues,omitempty"`
}

// SyncResult результат выполнения задания
type SyncResult struct {
	Label     string        `json:"label"`
	Success   bool          `json:"success"`
	Batches   int           `json:"batches"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    []SyncError   `json:"errors"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// SyncService выполняет задания синхронизации. Каждый пакет сверяется в своей
// единице работы: при ошибке откатывается только он.
type SyncService struct {
	api       *API
	log       *slog.Logger
	mu        sync.Mutex
	isSyncing bool
}

// NewSyncService создает новый сервис синхронизации
func NewSyncService(api *API, log *slog.Logger) *SyncService {
	return &SyncService{
		api: api,
		log: log.With("component", "sync"),
	}
}

// IsSyncing сообщает, выполняется ли задание
func (s *SyncService) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSyncing
}

// Run выполняет задание. Ошибки валидации копятся в результате, и задание идет
// дальше; любая другая ошибка останавливает задание после отката пакета.
func (s *SyncService) Run(ctx context.Context, job *Job) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if err := job.Validate(); err != nil {
		return nil, err
	}

	result := &SyncResult{
		Label:     job.Label,
		StartTime: time.Now(),
	}

	s.log.Info("Начало синхронизации", "label", job.Label, "batches", len(job.Batches))

	logID := s.writeJobLog(ctx, "", job.Label, JobRunning, nil)

	var runErr error
	for i, batch := range job.Batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		res, err := s.runBatch(ctx, batch)
		if res != nil && err == nil {
			result.Created += len(res.Created)
			result.Updated += len(res.Updated)
			result.Skipped += len(res.Skipped)
		}
		result.Batches++

		if err == nil {
			continue
		}

		var vErr *ValidationError
		if errors.As(err, &vErr) && !errors.Is(err, ErrRollbackFailed) {
			s.log.Warn("Пакет отклонен хранилищем", "batch", i, "collection", batch.Collection, "error", err)
			result.Errors = append(result.Errors, SyncError{
				Batch:      i,
				Collection: batch.Collection,
				Error:      err.Error(),
				Issues:     vErr.Issues,
				ItemIssues: vErr.ItemIssues,
			})
			continue
		}

		runErr = fmt.Errorf("пакет %d (%s): %w", i, batch.Collection, err)
		result.Errors = append(result.Errors, SyncError{Batch: i, Collection: batch.Collection, Error: err.Error()})
		break
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = runErr == nil && len(result.Errors) == 0

	status := JobFinished
	if !result.Success {
		status = JobFailed
	}
	s.writeJobLog(context.WithoutCancel(ctx), logID, job.Label, status, result.Errors)

	s.log.Info("Синхронизация завершена",
		"label", job.Label,
		"status", status,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	return result, runErr
}

func (s *SyncService) runBatch(ctx context.Context, batch Batch) (*ReconcileResult, error) {
	mode, err := ParseMode(batch.Mode)
	if err != nil {
		return nil, err
	}

	var res *ReconcileResult
	err = s.api.InTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		res, err = tx.Reconcile(ctx, batch.Collection, mode, batch.Records...)
		return err
	})
	return res, err
}

// writeJobLog записывает состояние задания в журнальную коллекцию. Журнальная
// коллекция не откатывается, сбой записи только логируется.
func (s *SyncService) writeJobLog(ctx context.Context, logID, label, status string, errs []SyncError) string {
	collection := s.api.cfg.AuditCollection
	if collection == "" {
		return ""
	}

	entry := document.Document{
		"label":  label,
		"status": status,
		"params": document.Document{},
	}
	if len(errs) > 0 {
		entry["params"] = document.Document{"errors": errs}
	}

	tx := s.api.Begin(ctx)
	if logID == "" {
		id, err := tx.Create(ctx, collection, entry)
		if err != nil {
			s.log.Warn("Не удалось записать журнал задания", "status", status, "error", err)
			return ""
		}
		return id
	}

	if err := tx.Update(ctx, collection, logID, entry, false); err != nil {
		s.log.Warn("Не удалось обновить журнал задания", "id", logID, "status", status, "error", err)
	}
	return logID
}
