package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"parlsync/internal/app/server/api/http/envelope"
)

const realm = "parlstore"

type contextKey string

const UserKey contextKey = "user"

// Auth проверяет HTTP Basic авторизацию. Пароль хранится только в виде bcrypt-хэша,
// успешно проверенные пары кэшируются, чтобы не считать bcrypt на каждый запрос.
type Auth struct {
	user     string
	hash     []byte
	log      *slog.Logger
	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

func New(user, password string, log *slog.Logger) (*Auth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Хэш пароля: %w", err)
	}
	return NewWithHash(user, hash, log), nil
}

func NewWithHash(user string, hash []byte, log *slog.Logger) *Auth {
	return &Auth{
		user:     user,
		hash:     hash,
		log:      log.With("component", "auth_middleware"),
		verified: make(map[[sha256.Size]byte]struct{}),
	}
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		user, password, ok := parseBasic(ctx.Header("Authorization"))
		if !ok || !a.check(user, password) {
			a.log.Warn("unauthorized request", "path", ctx.URL().Path, "user", user)
			ctx.SetHeader("WWW-Authenticate", `Basic realm="`+realm+`"`)
			err := envelope.Write(ctx, envelope.New(http.StatusUnauthorized, "Please provide proper credentials"))
			if err != nil {
				a.log.Error("write response", "error", err)
			}
			return
		}

		newCtx := context.WithValue(ctx.Context(), UserKey, user)
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *Auth) check(user, password string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) != 1 {
		return false
	}

	key := sha256.Sum256([]byte(user + ":" + password))
	a.mu.RLock()
	_, ok := a.verified[key]
	a.mu.RUnlock()
	if ok {
		return true
	}

	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return false
	}
	a.mu.Lock()
	a.verified[key] = struct{}{}
	a.mu.Unlock()
	return true
}

func GetUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(UserKey).(string)
	return user, ok
}

func parseBasic(header string) (user, password string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}
