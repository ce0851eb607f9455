package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/exp/slog"

	"parlsync/internal/app/client/config"
	"parlsync/internal/domain/document"
)

type storeRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// fakeStore - хранилище в памяти, отвечающее конвертами и записывающее запросы
type fakeStore struct {
	mu          sync.Mutex
	requests    []storeRequest
	data        map[string][]document.Document
	counters    map[string]int
	failDelete  map[string]int
	failCreate  map[string]int
	rejectField string
	dropLastID  bool
	server      *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	s := &fakeStore{
		data:       make(map[string][]document.Document),
		counters:   make(map[string]int),
		failDelete: make(map[string]int),
		failCreate: make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

func newTestConfig(s *fakeStore) *config.Config {
	cfg := config.Default()
	cfg.Endpoint = s.server.URL
	return cfg
}

func newTestAPI(t *testing.T, s *fakeStore, opts ...Option) *API {
	t.Helper()
	return NewAPI(newTestConfig(s), discardLogger(), opts...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *fakeStore) seed(collection string, docs ...document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.data[collection] = append(s.data[collection], doc.Clone())
	}
}

func (s *fakeStore) failDeleteFor(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failDelete, id)
		return
	}
	s.failDelete[id] = status
}

func (s *fakeStore) failCreateIn(collection string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[collection] = status
}

func (s *fakeStore) docs(collection string) []document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]document.Document, 0, len(s.data[collection]))
	for _, doc := range s.data[collection] {
		out = append(out, doc.Clone())
	}
	return out
}

func (s *fakeStore) reject(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectField = field
}

func (s *fakeStore) dropLastIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLastID = true
}

func (s *fakeStore) count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[collection])
}

func (s *fakeStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *fakeStore) all() []storeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeRequest(nil), s.requests...)
}

func (s *fakeStore) only(methods ...string) []storeRequest {
	var out []storeRequest
	for _, r := range s.all() {
		for _, m := range methods {
			if r.Method == m {
				out = append(out, r)
			}
		}
	}
	return out
}

func (s *fakeStore) writes() []storeRequest {
	return s.only(http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete)
}

func (s *fakeStore) paths(reqs []storeRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Path
	}
	return out
}

func (s *fakeStore) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, storeRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
	})

	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	collection := parts[0]
	id := ""
	if len(parts) > 1 {
		id = parts[1]
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.find(w, r, collection)
	case r.Method == http.MethodGet:
		s.get(w, collection, id)
	case r.Method == http.MethodPost:
		s.create(w, collection, body)
	case r.Method == http.MethodPatch || r.Method == http.MethodPut:
		s.update(w, collection, id, body, r.Method == http.MethodPut)
	case r.Method == http.MethodDelete:
		s.delete(w, collection, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, document.Document{
			"_status": StatusERR,
			"_error":  document.Document{"code": http.StatusMethodNotAllowed, "message": "Method Not Allowed"},
		})
	}
}

func (s *fakeStore) index(collection, id string) int {
	for i, doc := range s.data[collection] {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

func (s *fakeStore) get(w http.ResponseWriter, collection, id string) {
	i := s.index(collection, id)
	if i < 0 {
		writeNotFound(w)
		return
	}
	out := s.data[collection][i].Clone()
	out["_links"] = document.Document{"self": document.Document{"href": collection + "/" + id}}
	out["updated_at"] = "2024-01-01T00:00:00Z"
	writeJSON(w, http.StatusOK, out)
}

func (s *fakeStore) find(w http.ResponseWriter, r *http.Request, collection string) {
	q := r.URL.Query()

	var where document.Document
	if raw := q.Get(QueryWhere); raw != "" {
		if err := json.Unmarshal([]byte(raw), &where); err != nil {
			writeJSON(w, http.StatusBadRequest, document.Document{
				"_status": StatusERR,
				"_error":  document.Document{"code": http.StatusBadRequest, "message": err.Error()},
			})
			return
		}
	}

	matched := make([]document.Document, 0)
	for _, doc := range s.data[collection] {
		if matches(doc, where) {
			matched = append(matched, doc.Clone())
		}
	}

	maxResults := 25
	if v, err := strconv.Atoi(q.Get(QueryMaxResults)); err == nil && v > 0 {
		maxResults = v
	}
	page := 1
	if v, err := strconv.Atoi(q.Get(QueryPage)); err == nil && v > 0 {
		page = v
	}

	from := (page - 1) * maxResults
	to := from + maxResults
	if from > len(matched) {
		from = len(matched)
	}
	if to > len(matched) {
		to = len(matched)
	}

	links := document.Document{"self": document.Document{"href": collection}}
	if to < len(matched) {
		next := url.Values{}
		for k, v := range q {
			next[k] = v
		}
		next.Set(QueryPage, strconv.Itoa(page+1))
		links["next"] = document.Document{"href": collection + "?" + next.Encode(), "title": "next page"}
	}

	writeJSON(w, http.StatusOK, document.Document{
		"_items": matched[from:to],
		"_meta":  document.Document{"total": len(matched), "page": page, "max_results": maxResults},
		"_links": links,
	})
}

func matches(doc, where document.Document) bool {
	for field, cond := range where {
		if c, ok := cond.(map[string]any); ok {
			if in, ok := c["$in"].([]any); ok {
				found := false
				for _, v := range in {
					if fmt.Sprint(v) == doc.GetString(field) {
						found = true
					}
				}
				if !found {
					return false
				}
				continue
			}
		}
		if !document.Equal(doc.Get(field), cond) {
			return false
		}
	}
	return true
}

func (s *fakeStore) create(w http.ResponseWriter, collection string, body []byte) {
	if status, ok := s.failCreate[collection]; ok {
		writeJSON(w, status, document.Document{
			"_status": StatusERR,
			"_error":  document.Document{"code": status, "message": "create failed"},
		})
		return
	}

	trimmed := strings.TrimSpace(string(body))
	bulk := strings.HasPrefix(trimmed, "[")

	var docs []document.Document
	if bulk {
		_ = json.Unmarshal(body, &docs)
	} else {
		doc, _ := document.FromBytes(body)
		docs = []document.Document{doc}
	}

	if s.rejectField != "" {
		items := make([]document.Document, len(docs))
		rejected := false
		for i, doc := range docs {
			items[i] = document.Document{"_status": StatusOK}
			if _, bad := doc[s.rejectField]; bad {
				rejected = true
				items[i] = document.Document{
					"_status": StatusERR,
					"_issues": document.Document{s.rejectField: "unknown field"},
				}
			}
		}
		if rejected {
			resp := document.Document{
				"_status": StatusERR,
				"_error":  document.Document{"code": http.StatusUnprocessableEntity, "message": "Insertion failure"},
			}
			if bulk {
				resp["_items"] = items
			} else {
				resp["_issues"] = items[0]["_issues"]
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
	}

	items := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			s.counters[collection]++
			id = fmt.Sprintf("%s%d", collection[:1], s.counters[collection])
			doc[document.FieldID] = id
		}
		s.data[collection] = append(s.data[collection], doc)
		items = append(items, document.Document{"_status": StatusOK, "id": id})
	}

	if s.dropLastID && len(items) > 1 {
		items = items[:len(items)-1]
	}

	if !bulk {
		writeJSON(w, http.StatusCreated, items[0])
		return
	}
	writeJSON(w, http.StatusCreated, document.Document{"_status": StatusOK, "_items": items})
}

func (s *fakeStore) update(w http.ResponseWriter, collection, id string, body []byte, replace bool) {
	i := s.index(collection, id)
	if i < 0 {
		writeNotFound(w)
		return
	}
	patch, _ := document.FromBytes(body)
	if replace {
		patch[document.FieldID] = id
		s.data[collection][i] = patch
	} else {
		s.data[collection][i].Merge(patch)
	}
	writeJSON(w, http.StatusOK, document.Document{"_status": StatusOK, "id": id})
}

func (s *fakeStore) delete(w http.ResponseWriter, collection, id string) {
	if status, ok := s.failDelete[id]; ok {
		writeJSON(w, status, document.Document{
			"_status": StatusERR,
			"_error":  document.Document{"code": status, "message": "delete failed"},
		})
		return
	}
	i := s.index(collection, id)
	if i < 0 {
		writeNotFound(w)
		return
	}
	s.data[collection] = append(s.data[collection][:i], s.data[collection][i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, document.Document{
		"_status": StatusERR,
		"_error":  document.Document{"code": http.StatusNotFound, "message": "Not Found"},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
