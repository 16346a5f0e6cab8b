package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lukamath/internal/apperr"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c, srv
}

func TestDoDecodesByContentType(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = io.WriteString(w, `{"success":true,"n":3}`)
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "pong\n")
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/empty-json":
			w.Header().Set("Content-Type", "application/json")
		case "/bad-json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"success":`)
		}
	})
	ctx := context.Background()

	res, err := c.Do(ctx, http.MethodGet, "/json", nil)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, res.Kind)
	v, err := DecodeJSON[struct{ N int }](res)
	require.NoError(t, err)
	assert.Equal(t, 3, v.N)

	res, err = c.Do(ctx, http.MethodGet, "/text", nil)
	require.NoError(t, err)
	assert.Equal(t, KindText, res.Kind)
	assert.Equal(t, "pong", res.Text)
	assert.Nil(t, res.JSON)

	for _, p := range []string{"/empty", "/empty-json"} {
		res, err = c.Do(ctx, http.MethodGet, p, nil)
		require.NoError(t, err, p)
		assert.Equal(t, KindEmpty, res.Kind, p)
		v, err := DecodeJSON[map[string]any](res)
		assert.NoError(t, err)
		assert.Nil(t, v)
	}

	_, err = c.Do(ctx, http.MethodGet, "/bad-json", nil)
	assert.Equal(t, apperr.ServerError, apperr.KindOf(err))
}

func TestDoErrorMessages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"success":false,"message":"not your submission"}`)
		case "/text":
			http.Error(w, "boom upstream", http.StatusBadGateway)
		case "/bare":
			w.WriteHeader(http.StatusNotFound)
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "<p>bad</p>")
		}
	})
	ctx := context.Background()

	cases := []struct {
		path   string
		kind   apperr.Kind
		status int
		msg    string
	}{
		{"/json", apperr.Forbidden, 403, "not your submission"},
		{"/text", apperr.ServerError, 502, "boom upstream"},
		{"/bare", apperr.NotFound, 404, "Not Found"},
		{"/html", apperr.ValidationError, 400, "<p>bad</p>"},
	}
	for _, tc := range cases {
		_, err := c.Do(ctx, http.MethodGet, tc.path, nil)
		ae, ok := apperr.As(err)
		require.True(t, ok, tc.path)
		assert.Equal(t, tc.kind, ae.Kind, tc.path)
		assert.Equal(t, tc.status, ae.Status, tc.path)
		assert.Equal(t, tc.msg, ae.Message, tc.path)
		assert.False(t, apperr.Retryable(err), tc.path)
	}
}

func TestLargeJSONResponseDecodes(t *testing.T) {
	desc := strings.Repeat("x", 5000)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"homework":[`)
		for i := 0; i < 500; i++ {
			if i > 0 {
				_, _ = io.WriteString(w, ",")
			}
			_, _ = fmt.Fprintf(w, `{"id":"hw-%d","description":%q}`, i, desc)
		}
		_, _ = io.WriteString(w, `]}`)
	})

	res, err := c.Do(context.Background(), http.MethodGet, "/api/homework", nil)
	require.NoError(t, err)
	assert.Equal(t, KindJSON, res.Kind)
	assert.Greater(t, len(res.JSON), 1<<21)
	v, err := DecodeJSON[struct {
		Homework []struct{ ID string } `json:"homework"`
	}](res)
	require.NoError(t, err)
	assert.Len(t, v.Homework, 500)
}

func TestBodyOverLimitIsReportedAsSuch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"pad":"`+strings.Repeat("y", 256)+`"}`)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, MaxBody: 64})
	require.NoError(t, err)

	res, err := c.Do(context.Background(), http.MethodGet, "/big", nil)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ServerError, ae.Kind)
	assert.Contains(t, ae.Message, "exceeds 64 bytes")
	assert.NotContains(t, ae.Message, "malformed")
	assert.Equal(t, http.StatusOK, res.Status)
}

// Proxies answer with plain text under a JSON header; the status must survive.
func TestErrorStatusKeptWhenJSONBodyIsText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "Unauthorized")
	})

	res, err := c.Do(context.Background(), http.MethodGet, "/api/auth/me", nil)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MissingToken, ae.Kind)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "Unauthorized", ae.Message)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, KindText, res.Kind)

	k := NewCache(c, CacheConfig{On401: Return401Null})
	res, err = k.Get(context.Background(), "/api/auth/me")
	require.NoError(t, err)
	assert.Equal(t, KindEmpty, res.Kind)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestUnauthorizedKindDependsOnToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"authentication required"}`)
	})
	ctx := context.Background()

	_, err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, apperr.MissingToken, apperr.KindOf(err))
	assert.Empty(t, gotAuth)

	require.NoError(t, c.Tokens().SetToken("tok-123"))
	_, err = c.Do(ctx, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, apperr.InvalidToken, apperr.KindOf(err))
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestNetworkErrorIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "/api/auth/me", nil)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NetworkError, ae.Kind)
	assert.Zero(t, ae.Status)
	assert.True(t, apperr.Retryable(err))
}

func TestCancelledRequestIsNotNetworkError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, http.MethodGet, "/slow", nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, apperr.Retryable(err))
}

func TestSendsJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ct":"`+r.Header.Get("Content-Type")+`","echo":`+string(b)+`}`)
	})
	res, err := c.Do(context.Background(), http.MethodPost, "echo", map[string]string{"content": "1/2"})
	require.NoError(t, err)
	v, err := DecodeJSON[struct {
		CT   string            `json:"ct"`
		Echo map[string]string `json:"echo"`
	}](res)
	require.NoError(t, err)
	assert.Equal(t, "application/json", v.CT)
	assert.Equal(t, "1/2", v.Echo["content"])
}

// onceBody fails any Read issued after it has already reported EOF.
type onceBody struct {
	r        io.Reader
	drained  bool
	overread bool
}

func (b *onceBody) Read(p []byte) (int, error) {
	if b.drained {
		b.overread = true
		return 0, errors.New("body already consumed")
	}
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.drained = true
	}
	return n, err
}

func (b *onceBody) Close() error { return nil }

func TestDecodeReadsBodyOnce(t *testing.T) {
	for ct, body := range map[string]string{
		"application/json": `{"message":"nope"}`,
		"text/plain":       "nope",
		"":                 "",
	} {
		b := &onceBody{r: strings.NewReader(body)}
		resp := &http.Response{StatusCode: 400, Header: http.Header{"Content-Type": {ct}}, Body: b}
		res, err := decode(resp, DefaultMaxBody)
		require.NoError(t, err, ct)
		assert.False(t, b.overread, ct)
		if body != "" {
			assert.Equal(t, "nope", message(res), ct)
		}
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestBoltTokenStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")
	s, err := OpenBoltTokenStore(path)
	require.NoError(t, err)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
	require.NoError(t, s.SetToken("abc"))
	require.NoError(t, s.Close())

	s, err = OpenBoltTokenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.ClearToken())
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}
