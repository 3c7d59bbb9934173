package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/payrolladmin/payroll/backend/internal/client/tokenstore"
	"github.com/payrolladmin/payroll/backend/internal/common/constants"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

// ErrSessionExpired means the server refused the refresh token or none was
// stored. Local tokens have been cleared by the time it is returned.
var ErrSessionExpired = errors.New("session expired, please login again")

var authPaths = []string{"/auth/login", "/auth/signup", "/auth/refresh", "/auth/logout"}

// Transport attaches the stored access token to outgoing requests and keeps
// it fresh. At most one refresh call is in flight at a time; callers that
// need a refresh while one is running wait for it and share its outcome.
type Transport struct {
	base             http.RoundTripper
	store            *tokenstore.Store
	refreshURL       string
	window           time.Duration
	timeout          time.Duration
	onSessionExpired func()
	log              *logger.Logger

	group singleflight.Group
}

type TransportConfig struct {
	// Base defaults to http.DefaultTransport.
	Base             http.RoundTripper
	Store            *tokenstore.Store
	APIURL           string
	RefreshWindow    time.Duration
	Timeout          time.Duration
	OnSessionExpired func()
	Log              *logger.Logger
}

func NewTransport(cfg TransportConfig) *Transport {
	t := &Transport{
		base:             cfg.Base,
		store:            cfg.Store,
		refreshURL:       strings.TrimRight(cfg.APIURL, "/") + "/auth/refresh",
		window:           cfg.RefreshWindow,
		timeout:          cfg.Timeout,
		onSessionExpired: cfg.OnSessionExpired,
		log:              cfg.Log,
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	if t.window == 0 {
		t.window = constants.ClientRefreshWindow
	}
	if t.timeout == 0 {
		t.timeout = constants.ClientRequestTimeout
	}
	if t.log == nil {
		t.log = logger.Discard()
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isAuthPath(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	token, err := t.store.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}

	retried := false
	if token != "" && t.store.IsExpiringSoon(token, t.window) && t.canRefresh(ctx) {
		fresh, err := t.refresh(ctx, token)
		switch {
		case err == nil:
			token = fresh
		case errors.Is(err, ErrSessionExpired):
			// Already cleared and reported; let the server answer 401 once.
			token, retried = "", true
		default:
			t.log.WithFields(ctx, logger.Fields{"action": "proactive_refresh_failed"}).Warnf("proactive refresh failed: %v", err)
		}
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	fresh, err := t.refresh(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return resp, nil
		}
		_ = drain(resp)
		return nil, err
	}

	replay := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		replay.Body = body
	}
	_ = drain(resp)
	return t.base.RoundTrip(withBearer(replay, fresh))
}

// canRefresh reports whether a refresh token is stored. Without one a token
// that is about to expire is still sent as is.
func (t *Transport) canRefresh(ctx context.Context) bool {
	refreshToken, err := t.store.RefreshToken(ctx)
	return err == nil && refreshToken != ""
}

// Refresh forces a token rotation, for example right after creating a
// company so the new tenant shows up in the access token.
func (t *Transport) Refresh(ctx context.Context) (string, error) {
	return t.refresh(ctx, "")
}

// refresh returns a usable access token. stale is the token the caller
// saw; when the store already holds a different, healthy token another
// caller has rotated in the meantime and that token is reused.
func (t *Transport) refresh(ctx context.Context, stale string) (string, error) {
	v, err, shared := t.group.Do("refresh", func() (any, error) {
		if stale != "" {
			current, err := t.store.AccessToken(ctx)
			if err != nil {
				return "", err
			}
			if current != "" && current != stale && !t.store.IsExpiringSoon(current, t.window) {
				return current, nil
			}
		}

		// The flight outlives the caller that started it.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		return t.doRefresh(flightCtx)
	})
	if shared {
		t.log.WithFields(ctx, logger.Fields{"action": "refresh_shared"}).Debug("joined in-flight refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (t *Transport) doRefresh(ctx context.Context) (string, error) {
	refreshToken, err := t.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", t.expire(ctx, "no refresh token stored")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", t.expire(ctx, fmt.Sprintf("refresh rejected with %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("refresh failed: %s", resp.Status)
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return "", errors.New("refresh response without tokens")
	}
	if err := t.store.UpdateTokens(ctx, body.AccessToken, body.RefreshToken); err != nil {
		return "", fmt.Errorf("store rotated tokens: %w", err)
	}

	t.log.WithFields(ctx, logger.Fields{"action": "refresh_success"}).Debug("tokens rotated")
	return body.AccessToken, nil
}

func (t *Transport) expire(ctx context.Context, reason string) error {
	t.log.WithFields(ctx, logger.Fields{"action": "session_expired"}).Warnf("session expired: %s", reason)
	if err := t.store.Clear(ctx); err != nil {
		t.log.WithFields(ctx, logger.Fields{"action": "session_clear_failed"}).Errorf("clear tokens: %v", err)
	}
	if t.onSessionExpired != nil {
		t.onSessionExpired()
	}
	return ErrSessionExpired
}

func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token == "" {
		out.Header.Del("Authorization")
	} else {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

func isAuthPath(path string) bool {
	path = strings.TrimRight(path, "/")
	for _, p := range authPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func drain(resp *http.Response) error {
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
