package resource

import (
	"net/url"
	"strconv"

	"parlsync/internal/app/server/api/http/envelope"
	"parlsync/internal/domain/document"
	"parlsync/internal/domain/resource"
)

// Ссылки в _links относительны корню API
func link(title, href string) document.Document {
	return document.Document{"title": title, "href": href}
}

func selfLinks(rec *resource.Record) document.Document {
	return document.Document{"self": link(rec.Collection, rec.Collection+"/"+rec.ID)}
}

// fullView - документ целиком, как его отдает GET
func fullView(rec *resource.Record) document.Document {
	view := rec.View()
	view[resource.FieldLinks] = selfLinks(rec)
	return view
}

// metaView - ответ на запись: id и серверные атрибуты без тела документа
func metaView(rec *resource.Record) document.Document {
	view := rec.View()
	out := document.Document{
		"_status":           envelope.StatusOK,
		resource.FieldLinks: selfLinks(rec),
	}
	for _, f := range []string{document.FieldID, resource.FieldCreated, resource.FieldUpdated, resource.FieldETag} {
		out[f] = view[f]
	}
	return out
}

func pageLinks(input *findInput, page resource.Page) document.Document {
	links := document.Document{
		"parent": link("home", "/"),
		"self":   link(input.Collection, input.Collection),
	}
	if page.HasNext() {
		links["next"] = link("next page", pageHref(input, page.Page+1, page.MaxResults))
		links["last"] = link("last page", pageHref(input, page.LastPage(), page.MaxResults))
	}
	if page.Page > 1 {
		links["prev"] = link("previous page", pageHref(input, page.Page-1, page.MaxResults))
	}
	return links
}

// pageHref повторяет условие и сортировку запроса для другой страницы
func pageHref(input *findInput, page, maxResults int) string {
	values := url.Values{}
	if input.Where != "" {
		values.Set("where", input.Where)
	}
	if input.Sort != "" {
		values.Set("sort", input.Sort)
	}
	values.Set("max_results", strconv.Itoa(maxResults))
	values.Set("page", strconv.Itoa(page))
	return input.Collection + "?" + values.Encode()
}
