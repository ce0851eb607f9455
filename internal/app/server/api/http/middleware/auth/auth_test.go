package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type whoamiOutput struct {
	Body struct {
		User string `json:"user"`
	}
}

func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewWithHash("sync", hash, slog.Default())

	_, api := humatest.New(t)
	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{a.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		out := &whoamiOutput{}
		out.Body.User, _ = GetUser(ctx)
		return out, nil
	})
	return api
}

func basic(user, password string) string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func TestAuth_Middleware(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name       string
		header     []any
		wantStatus int
	}{
		{name: "valid credentials", header: []any{basic("sync", "secret")}, wantStatus: http.StatusOK},
		{name: "cached credentials", header: []any{basic("sync", "secret")}, wantStatus: http.StatusOK},
		{name: "wrong password", header: []any{basic("sync", "nope")}, wantStatus: http.StatusUnauthorized},
		{name: "wrong user", header: []any{basic("admin", "secret")}, wantStatus: http.StatusUnauthorized},
		{name: "bearer token", header: []any{"Authorization: Bearer abc"}, wantStatus: http.StatusUnauthorized},
		{name: "broken base64", header: []any{"Authorization: Basic !!!"}, wantStatus: http.StatusUnauthorized},
		{name: "no header", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Get("/whoami", tt.header...)
			assert.Equal(t, tt.wantStatus, resp.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "sync", body["user"])
				return
			}
			assert.Equal(t, "ERR", body["_status"])
			assert.Equal(t, float64(http.StatusUnauthorized), body["_error"].(map[string]any)["code"])
			assert.Contains(t, resp.Header().Get("WWW-Authenticate"), "Basic")
		})
	}
}

func TestParseBasic(t *testing.T) {
	user, password, ok := parseBasic("basic " + base64.StdEncoding.EncodeToString([]byte("a:b:c")))
	assert.True(t, ok)
	assert.Equal(t, "a", user)
	assert.Equal(t, "b:c", password)

	_, _, ok = parseBasic("Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")))
	assert.False(t, ok)
}
