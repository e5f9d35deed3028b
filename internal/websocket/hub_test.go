package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubTokens struct {
	id  uuid.UUID
	err error
}

func (s stubTokens) ParseToken(string) (uuid.UUID, error) { return s.id, s.err }

func TestHandleWebSocket_RequiresToken(t *testing.T) {
	h := NewHub(nil, stubTokens{id: uuid.New()}, "http://localhost:5173", zap.NewNop())

	rr := httptest.NewRecorder()
	h.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleWebSocket_RejectsBadToken(t *testing.T) {
	h := NewHub(nil, stubTokens{err: errors.New("invalid token")}, "http://localhost:5173", zap.NewNop())

	rr := httptest.NewRecorder()
	h.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=abc", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("http://localhost:5173")

	req := httptest.NewRequest(http.MethodGet, "http://api.local/api/v1/ws", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://api.local")
	assert.True(t, check(req), "same origin")

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker("*")(req))
}
