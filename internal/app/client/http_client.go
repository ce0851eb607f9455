package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"parlsync/internal/app/client/config"
)

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	user      string
	password  string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec
			},
		},
	}

	return &httpClient{
		client:    client,
		log:       log,
		baseURL:   strings.TrimRight(cfg.Endpoint, "/"),
		user:      cfg.User,
		password:  cfg.Password,
		userAgent: cfg.UserAgent,
	}
}

// SetCredentials устанавливает данные basic-аутентификации
func (h *httpClient) SetCredentials(user, password string) {
	h.user = user
	h.password = password
}

// resourceURL собирает адрес <endpoint>/<collection>[/<id>][?query].
// Коллекция и id экранируются как отдельные сегменты пути.
func (h *httpClient) resourceURL(collection, id string, query Query) (string, error) {
	u := h.baseURL + "/" + url.PathEscape(strings.Trim(collection, "/"))
	if id != "" {
		u += "/" + url.PathEscape(id)
	}

	encoded, err := query.Encode()
	if err != nil {
		return "", err
	}
	if encoded != "" {
		u += "?" + encoded
	}
	return u, nil
}

// linkURL превращает ссылку из _links (относительную к endpoint) в полный адрес
func (h *httpClient) linkURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return h.baseURL + "/" + strings.TrimLeft(href, "/")
}

// Do выполняет один обмен с хранилищем и разбирает ответ
func (h *httpClient) Do(ctx context.Context, method, rawURL string, body interface{}) (*Envelope, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", h.userAgent)
	if h.user != "" || h.password != "" {
		req.SetBasicAuth(h.user, h.password)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", rawURL,
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: rawURL, Err: fmt.Errorf("ошибка чтения ответа: %w", err)}
	}

	h.log.Debug("Получен ответ",
		"method", method,
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(data),
	)

	return parseResponse(rawURL, resp.StatusCode, data)
}
