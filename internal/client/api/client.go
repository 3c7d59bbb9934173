package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/client/tokenstore"
	"github.com/payrolladmin/payroll/backend/internal/common/config"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

// APIError carries the server's error envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

type Company struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	EntityType string  `json:"entityType"`
	PanVat     string  `json:"panVat"`
	Address    string  `json:"address"`
	Phone      string  `json:"phone"`
	Email      *string `json:"email,omitempty"`
}

type Department struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SignupResult struct {
	User    tokenstore.User `json:"user"`
	Message string          `json:"message"`
}

type loginResponse struct {
	User         tokenstore.User `json:"user"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

type Client struct {
	apiURL    string
	http      *http.Client
	store     *tokenstore.Store
	transport *Transport
}

func NewClient(cfg config.ClientConfig, store *tokenstore.Store, onSessionExpired func(), log *logger.Logger) *Client {
	return newClient(cfg, store, nil, onSessionExpired, log)
}

func newClient(cfg config.ClientConfig, store *tokenstore.Store, base http.RoundTripper, onSessionExpired func(), log *logger.Logger) *Client {
	transport := NewTransport(TransportConfig{
		Base:             base,
		Store:            store,
		APIURL:           cfg.APIURL,
		Timeout:          cfg.Timeout,
		OnSessionExpired: onSessionExpired,
		Log:              log,
	})
	return &Client{
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		http:      &http.Client{Transport: transport, Timeout: cfg.Timeout},
		store:     store,
		transport: transport,
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (SignupResult, error) {
	var out SignupResult
	err := c.do(ctx, http.MethodPost, "/auth/signup", "", credentials{Email: email, Password: password}, &out)
	return out, err
}

// Login stores the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (tokenstore.User, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", credentials{Email: email, Password: password}, &out); err != nil {
		return tokenstore.User{}, err
	}
	if err := c.store.SaveTokens(ctx, out.AccessToken, out.RefreshToken, &out.User); err != nil {
		return tokenstore.User{}, err
	}
	return out.User, nil
}

// Logout clears local tokens even when the server call fails; the auth
// paths bypass the transport, so the access token is attached here.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return err
	}
	var callErr error
	if token != "" {
		callErr = c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
	}
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	var apiErr *APIError
	if errors.As(callErr, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return callErr
}

func (c *Client) CurrentUser(ctx context.Context) (*tokenstore.User, error) {
	return c.store.User(ctx)
}

// MyCompany returns nil when the user has not created one yet.
func (c *Client) MyCompany(ctx context.Context) (*Company, error) {
	var out *Company
	err := c.do(ctx, http.MethodGet, "/company/me", "", nil, &out)
	return out, err
}

// CreateCompany also rotates the tokens so the next calls carry the new
// company id.
func (c *Client) CreateCompany(ctx context.Context, in Company) (Company, error) {
	var out Company
	if err := c.do(ctx, http.MethodPost, "/company", "", in, &out); err != nil {
		return Company{}, err
	}
	if _, err := c.transport.Refresh(ctx); err != nil {
		return out, fmt.Errorf("company created but token refresh failed: %w", err)
	}
	if user, err := c.store.User(ctx); err == nil && user != nil {
		user.CompanyID = jwtverify.WithTenant(out.ID)
		access, _ := c.store.AccessToken(ctx)
		refresh, _ := c.store.RefreshToken(ctx)
		_ = c.store.SaveTokens(ctx, access, refresh, user)
	}
	return out, nil
}

func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	var out []Department
	err := c.do(ctx, http.MethodGet, "/departments", "", nil, &out)
	return out, err
}

func (c *Client) CreateDepartment(ctx context.Context, name string, description *string) (Department, error) {
	var out Department
	body := struct {
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
	}{Name: name, Description: description}
	err := c.do(ctx, http.MethodPost, "/departments", "", body, &out)
	return out, err
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
