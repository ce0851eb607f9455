package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/api/http/envelope"
	"parlsync/internal/domain/document"
	"parlsync/internal/domain/resource"
)

var errEmptyBody = errors.New("request body is empty")

type Handler struct {
	service    resource.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service resource.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "resource_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.patchOp(), h.patch)
	huma.Register(api, h.replaceOp(), h.replace)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) find(ctx context.Context, input *findInput) (*output, error) {
	where, err := resource.ParseWhere(input.Where)
	if err != nil {
		return nil, h.fail(err)
	}
	sortFields, err := resource.ParseSort(input.Sort)
	if err != nil {
		return nil, h.fail(err)
	}

	page, err := h.service.Find(ctx, input.Collection, resource.Query{
		Where:      where,
		Sort:       sortFields,
		Page:       input.Page,
		MaxResults: input.MaxResults,
	})
	if err != nil {
		return nil, h.fail(err)
	}

	items := lo.Map(page.Items, func(rec resource.Record, _ int) any {
		return fullView(&rec)
	})

	return &output{
		Status: http.StatusOK,
		Body: document.Document{
			"_items": items,
			"_meta": document.Document{
				"total":       page.Total,
				"page":        page.Page,
				"max_results": page.MaxResults,
			},
			resource.FieldLinks: pageLinks(input, page),
		},
	}, nil
}

// create принимает документ или список документов; форма ответа повторяет форму запроса
func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	docs, bulk, err := decodeDocuments(input.RawBody)
	if err != nil {
		return nil, envelope.New(http.StatusBadRequest, err.Error())
	}

	records, err := h.service.Create(ctx, input.Collection, docs)
	if err != nil {
		var vErr *resource.ValidationError
		if errors.As(err, &vErr) {
			return nil, rejected("Insertion failure", vErr, bulk, len(docs))
		}
		return nil, h.fail(err)
	}

	if !bulk {
		return &output{Status: http.StatusCreated, Body: metaView(&records[0])}, nil
	}

	items := lo.Map(records, func(rec resource.Record, _ int) any {
		return metaView(&rec)
	})
	return &output{
		Status: http.StatusCreated,
		Body: document.Document{
			"_status": envelope.StatusOK,
			"_items":  items,
		},
	}, nil
}

func (h *Handler) get(ctx context.Context, input *itemInput) (*output, error) {
	rec, err := h.service.Get(ctx, input.Collection, input.ID)
	if err != nil {
		return nil, h.fail(err)
	}
	return &output{Status: http.StatusOK, Body: fullView(rec)}, nil
}

func (h *Handler) patch(ctx context.Context, input *writeInput) (*output, error) {
	doc, err := decodeDocument(input.RawBody)
	if err != nil {
		return nil, envelope.New(http.StatusBadRequest, err.Error())
	}

	rec, err := h.service.Patch(ctx, input.Collection, input.ID, doc)
	if err != nil {
		return nil, h.updateFailure(err)
	}
	return &output{Status: http.StatusOK, Body: metaView(rec)}, nil
}

func (h *Handler) replace(ctx context.Context, input *writeInput) (*output, error) {
	doc, err := decodeDocument(input.RawBody)
	if err != nil {
		return nil, envelope.New(http.StatusBadRequest, err.Error())
	}

	rec, err := h.service.Replace(ctx, input.Collection, input.ID, doc)
	if err != nil {
		return nil, h.updateFailure(err)
	}
	return &output{Status: http.StatusOK, Body: metaView(rec)}, nil
}

func (h *Handler) delete(ctx context.Context, input *itemInput) (*struct{}, error) {
	if err := h.service.Delete(ctx, input.Collection, input.ID); err != nil {
		return nil, h.fail(err)
	}
	return nil, nil
}

func (h *Handler) updateFailure(err error) error {
	var vErr *resource.ValidationError
	if errors.As(err, &vErr) {
		return rejected("Update failure", vErr, false, 1)
	}
	return h.fail(err)
}

// fail переводит ошибку домена в ответ с _error
func (h *Handler) fail(err error) error {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return envelope.New(http.StatusNotFound, "The requested URL was not found on the server")
	case errors.Is(err, resource.ErrInvalidQuery), errors.Is(err, resource.ErrEmptyRequest):
		return envelope.New(http.StatusBadRequest, err.Error())
	case errors.Is(err, resource.ErrDuplicateID):
		return envelope.New(http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		return envelope.New(http.StatusInternalServerError, "")
	}
}

func rejected(prefix string, vErr *resource.ValidationError, bulk bool, total int) error {
	msg := fmt.Sprintf("%s: %s", prefix, vErr.Error())
	if !bulk {
		return envelope.WithIssues(http.StatusUnprocessableEntity, msg, vErr.Items[0])
	}
	issues := lo.MapValues(vErr.Items, func(is resource.Issues, _ int) map[string]string {
		return is
	})
	return envelope.WithItems(http.StatusUnprocessableEntity, msg, total, issues)
}

// decodeDocuments разбирает тело: объект - один документ, массив - массовое создание
func decodeDocuments(raw []byte) ([]document.Document, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, errEmptyBody
	}

	if raw[0] != '[' {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, false, err
		}
		return []document.Document{doc}, false, nil
	}

	var docs []document.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, true, fmt.Errorf("failed to decode documents: %w", err)
	}
	for i := range docs {
		if docs[i] == nil {
			docs[i] = document.Document{}
		}
	}
	return docs, true, nil
}

func decodeDocument(raw []byte) (document.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errEmptyBody
	}
	return document.FromBytes(raw)
}
