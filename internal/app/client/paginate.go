package client

import (
	"context"
	"fmt"
	"net/http"
)

// findAll обходит все страницы выдачи по ссылкам _links.next и склеивает _items.
// Итоговый конверт выглядит как одна непостраничная выдача: без page и next,
// max_results равен числу записей.
func (a *API) findAll(ctx context.Context, collection string, query Query) (*Envelope, error) {
	q := query.Clone()
	delete(q, QueryAll)
	delete(q, QueryPage)
	q[QueryMaxResults] = a.cfg.PageSize

	u, err := a.http.resourceURL(collection, "", q)
	if err != nil {
		return nil, err
	}

	a.log.Debug("find all", "collection", collection, "query", q)

	result, err := a.http.Do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	pages := 1
	for part := result; part.NextHref() != ""; {
		href := part.NextHref()
		if _, ok := seen[href]; ok {
			return nil, &APIError{URL: u, StatusCode: result.HTTPStatus, Code: result.HTTPStatus,
				Message: fmt.Sprintf("pagination loop at %q", href), Envelope: part}
		}
		seen[href] = struct{}{}

		part, err = a.http.Do(ctx, http.MethodGet, a.http.linkURL(href), nil)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, part.Items...)
		pages++
	}

	if result.Meta == nil {
		result.Meta = &Meta{Total: len(result.Items)}
	}
	result.Meta.Page = 0
	// число собранных записей, а не _meta.total: total мог измениться между страницами
	result.Meta.MaxResults = len(result.Items)
	if result.Links != nil {
		result.Links.Next = nil
	}

	if result.Body != nil {
		result.Body["_items"] = result.Items
		result.Body["_meta"] = result.Meta
		if links := result.Body.GetDocument("_links"); links != nil {
			delete(links, "next")
		}
	}

	a.log.Debug("find all: done", "collection", collection, "pages", pages, "items", len(result.Items))

	return result, nil
}
