// Package client calls the lukamath API: it attaches the stored bearer token,
// decodes each response body exactly once into a tagged Result, and turns
// failures into *apperr.Error values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
)

// Kind tags how a response body was decoded.
type Kind int

const (
	KindEmpty Kind = iota
	KindJSON
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Result is a decoded response. JSON is set only for KindJSON, Text only for
// KindText.
type Result struct {
	Kind   Kind
	Status int
	JSON   json.RawMessage
	Text   string
}

// DefaultMaxBody is the response size limit used when Config.MaxBody is unset.
const DefaultMaxBody = 64 << 20

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenStore
	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
	// MaxBody bounds how many response bytes are read; <= 0 means DefaultMaxBody.
	MaxBody int64
	Logger  *zap.Logger
}

type Client struct {
	base    *url.URL
	hc      *http.Client
	tokens  TokenStore
	maxBody int64
	log     *zap.Logger
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	lg := cfg.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Client{base: base, hc: hc, tokens: tokens, maxBody: maxBody, log: lg}, nil
}

func (c *Client) Tokens() TokenStore { return c.tokens }

func (c *Client) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

// Do sends one request. body, when non-nil, is sent as JSON. A non-2xx
// response returns the decoded Result together with an *apperr.Error; a
// transport failure returns a NetworkError and an empty Result.
func (c *Client) Do(ctx context.Context, method, path string, body any) (Result, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Result{}, apperr.Wrap(apperr.ValidationError, "could not encode request body", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), rdr)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.ValidationError, "invalid request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Unknown, "could not read stored token", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		c.log.Warn("client.network.error", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return Result{}, apperr.Wrap(apperr.NetworkError, "network error", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	res, err := decode(resp, c.maxBody)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		// a failed response is still reported by its status below
		if ok {
			return res, err
		}
		c.log.Debug("client.error.body", zap.Int("status", resp.StatusCode), zap.Error(err))
	}
	c.log.Debug("client.request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.Status),
		zap.Stringer("body", res.Kind),
		zap.Duration("took", time.Since(start)),
	)

	if ok {
		return res, nil
	}
	kind := apperr.FromStatus(resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized && tok == "" {
		kind = apperr.MissingToken
	}
	return res, &apperr.Error{Kind: kind, Status: resp.StatusCode, Message: message(res)}
}

// decode is the only place a response body is consumed. The body is read
// once, then classified by content type. A JSON content type with a body that
// does not parse is an error on success responses and plain text on failures,
// where proxies often answer with text under a JSON header.
func decode(resp *http.Response, limit int64) (Result, error) {
	res := Result{Status: resp.StatusCode}
	isJSON := strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json")

	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return res, apperr.Wrap(apperr.NetworkError, "could not read response", err)
	}
	if int64(len(b)) > limit {
		return res, &apperr.Error{
			Kind:    apperr.ServerError,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response body exceeds %d bytes", limit),
		}
	}
	body := bytes.TrimSpace(b)
	if len(body) == 0 {
		return res, nil
	}

	if isJSON {
		if json.Valid(body) {
			res.Kind, res.JSON = KindJSON, json.RawMessage(body)
			return res, nil
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return res, apperr.E(apperr.ServerError, "malformed JSON response")
		}
	}
	res.Kind, res.Text = KindText, string(body)
	return res, nil
}

// message picks the best human-readable explanation of a failed response.
func message(res Result) string {
	switch res.Kind {
	case KindJSON:
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(res.JSON, &body) == nil {
			if body.Message != "" {
				return body.Message
			}
			if body.Error != "" {
				return body.Error
			}
		}
	case KindText:
		return res.Text
	}
	if t := http.StatusText(res.Status); t != "" {
		return t
	}
	return fmt.Sprintf("HTTP %d", res.Status)
}

// DecodeJSON unmarshals a KindJSON result into T. Empty and text results
// yield the zero value.
func DecodeJSON[T any](res Result) (T, error) {
	var v T
	if res.Kind != KindJSON {
		return v, nil
	}
	if err := json.Unmarshal(res.JSON, &v); err != nil {
		return v, apperr.Wrap(apperr.ServerError, "unexpected response shape", err)
	}
	return v, nil
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Language  string `json:"language,omitempty"`
}

type userEnvelope struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	User    domain.PublicUser `json:"user"`
}

// Login exchanges credentials for a token and stores it under TokenKey. Any
// previously stored token is dropped first so a stale one cannot get the
// login request itself rejected.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.PublicUser, error) {
	if err := c.tokens.ClearToken(); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "could not clear token", err)
	}
	res, err := c.Do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Status == http.StatusUnauthorized {
			return nil, &apperr.Error{Kind: apperr.InvalidCredentials, Status: ae.Status, Message: ae.Message}
		}
		return nil, err
	}
	env, err := DecodeJSON[userEnvelope](res)
	if err != nil {
		return nil, err
	}
	if env.Token == "" {
		return nil, apperr.E(apperr.ServerError, "login response carried no token")
	}
	if err := c.tokens.SetToken(env.Token); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "could not store token", err)
	}
	return &env.User, nil
}

// Logout tells the server (best effort) and always drops the stored token.
func (c *Client) Logout(ctx context.Context) error {
	_, callErr := c.Do(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err := c.tokens.ClearToken(); err != nil {
		return apperr.Wrap(apperr.Unknown, "could not clear token", err)
	}
	if apperr.Retryable(callErr) {
		c.log.Debug("client.logout.offline", zap.Error(callErr))
	}
	return nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*domain.PublicUser, error) {
	res, err := c.Do(ctx, http.MethodPost, "/api/auth/register", in)
	if err != nil {
		return nil, err
	}
	env, err := DecodeJSON[userEnvelope](res)
	if err != nil {
		return nil, err
	}
	return &env.User, nil
}

func (c *Client) Me(ctx context.Context) (*domain.PublicUser, error) {
	res, err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	env, err := DecodeJSON[userEnvelope](res)
	if err != nil {
		return nil, err
	}
	return &env.User, nil
}
