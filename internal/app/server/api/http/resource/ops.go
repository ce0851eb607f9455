package resource

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var security = []map[string][]string{{"basic": {}}}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "resources-find",
		Method:      http.MethodGet,
		Path:        "/{collection}",
		Summary:     "Поиск документов коллекции",
		Description: "Страница документов с _meta и _links.next, если есть следующая страница.",
		Tags:        []string{"resources"},
		Security:    security,
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:      "resources-create",
		Method:           http.MethodPost,
		Path:             "/{collection}",
		Summary:          "Создать документ или список документов",
		Description:      "Список сохраняется целиком или не сохраняется совсем; замечания по каждому документу в _items.",
		Tags:             []string{"resources"},
		Security:         security,
		DefaultStatus:    http.StatusCreated,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity},
		Middlewares:      h.middleware,
		SkipValidateBody: true,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "resources-get",
		Method:      http.MethodGet,
		Path:        "/{collection}/{id}",
		Summary:     "Получить документ",
		Tags:        []string{"resources"},
		Security:    security,
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
		Middlewares: h.middleware,
	}
}

func (h *Handler) patchOp() huma.Operation {
	return huma.Operation{
		OperationID:      "resources-patch",
		Method:           http.MethodPatch,
		Path:             "/{collection}/{id}",
		Summary:          "Частично обновить документ",
		Description:      "Вложенные документы сливаются рекурсивно, остальные значения заменяются.",
		Tags:             []string{"resources"},
		Security:         security,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares:      h.middleware,
		SkipValidateBody: true,
	}
}

func (h *Handler) replaceOp() huma.Operation {
	return huma.Operation{
		OperationID:      "resources-replace",
		Method:           http.MethodPut,
		Path:             "/{collection}/{id}",
		Summary:          "Заменить документ",
		Tags:             []string{"resources"},
		Security:         security,
		Errors:           []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares:      h.middleware,
		SkipValidateBody: true,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "resources-delete",
		Method:        http.MethodDelete,
		Path:          "/{collection}/{id}",
		Summary:       "Удалить документ",
		Tags:          []string{"resources"},
		Security:      security,
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
		Middlewares:   h.middleware,
	}
}
