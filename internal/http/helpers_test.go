package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lukamath/internal/config"
	server "lukamath/internal/http"
	applog "lukamath/internal/log"
	"lukamath/internal/repos"
)

type testEnv struct {
	app *fiber.App
	db  *sqlx.DB
	cfg config.Config
}

// newTestApp wires the real app on a seeded in-memory database.
func newTestApp(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.ForTest()
	cfg.UploadDir = t.TempDir()
	for _, f := range tweak {
		f(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.Seed(db, cfg.BcryptCost))
	return &testEnv{app: server.NewApp(db, cfg, nil), db: db, cfg: cfg}
}

// do sends a JSON request and decodes the JSON response (if any).
func (e *testEnv) do(t *testing.T, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	status, body := e.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": email, "password": repos.DemoPassword,
	})
	require.Equal(t, 200, status, body)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

// observeLogs routes the app logger into memory for the rest of the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(applog.SetLogger(zap.New(core)))
	return logs
}

func nested(body map[string]any, key string) map[string]any {
	m, _ := body[key].(map[string]any)
	return m
}
