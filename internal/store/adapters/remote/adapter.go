// Package remote implementa el adapter contra un backend hospedado:
// admin API de auth (GoTrue) para credenciales y REST (PostgREST) para tablas.
//
// Usa la service key para todas las operaciones administrativas y la anon key
// sólo para el login por password, igual que un cliente final.
package remote

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

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/store"
)

func init() {
	store.RegisterAdapter(&remoteAdapter{})
}

type remoteAdapter struct{}

func (a *remoteAdapter) Name() string { return "remote" }

func (a *remoteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	if cfg.RemoteURL == "" || cfg.ServiceKey == "" {
		return nil, fmt.Errorf("remote: url and service key are required")
	}
	c := New(cfg.RemoteURL, cfg.ServiceKey, cfg.AnonKey, &http.Client{Timeout: orDefault(cfg.Timeout, 10*time.Second)})
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Client es la conexión remota; implementa store.Connection.
type Client struct {
	baseURL    string
	serviceKey string
	anonKey    string
	http       *http.Client
}

// New crea un Client. anonKey vacío usa la service key también para el login.
func New(baseURL, serviceKey, anonKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if anonKey == "" {
		anonKey = serviceKey
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		anonKey:    anonKey,
		http:       hc,
	}
}

func (c *Client) Name() string { return "remote" }

// Ping consulta el health del servicio de auth.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/health", key: c.anonKey})
	return err
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) Credentials() repository.CredentialStore { return &credentialRepo{c: c} }
func (c *Client) Profiles() repository.ProfileRepository  { return &profileRepo{c: c} }
func (c *Client) Staff() repository.StaffRepository       { return &staffRepo{c: c} }

// ─── HTTP ───

type request struct {
	method string
	path   string // incluye query string
	key    string // apikey
	bearer string // default: key
	body   any
	prefer string
}

// apiError es el cuerpo de error; GoTrue y PostgREST usan campos distintos.
type apiError struct {
	Status int `json:"-"`

	// GoTrue
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`

	// PostgREST
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

func (e *apiError) Error() string {
	msg := firstNonEmpty(e.Msg, e.ErrorDescription, e.Message, e.ErrorName, http.StatusText(e.Status))
	return fmt.Sprintf("remote: status %d: %s", e.Status, msg)
}

// pgCode retorna el código SQLSTATE de PostgREST ("23505"), si lo hay.
func (e *apiError) pgCode() string {
	var s string
	if json.Unmarshal(e.Code, &s) == nil {
		return s
	}
	return ""
}

func (e *apiError) text() string {
	return strings.ToLower(strings.Join([]string{e.ErrorCode, e.Msg, e.ErrorName, e.ErrorDescription, e.Message}, " "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	bearer := r.bearer
	if bearer == "" {
		bearer = r.key
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("remote: %s %s: %w: %v", r.method, pathOnly(r.path), repository.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("remote: read body: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return nil, apiErr
	}
	return raw, nil
}

func pathOnly(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		return p[:i]
	}
	return p
}

// asAPIError extrae el *apiError de err.
func asAPIError(err error) (*apiError, bool) {
	var e *apiError
	ok := errors.As(err, &e)
	return e, ok
}

// mapErr traduce respuestas HTTP a los sentinels del dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	e, ok := asAPIError(err)
	if !ok {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	switch {
	case e.Status == http.StatusNotFound:
		return repository.ErrNotFound
	case e.Status == http.StatusConflict || e.pgCode() == "23505":
		return fmt.Errorf("remote: %s: %w", op, repository.ErrConflict)
	case e.Status >= 500:
		return fmt.Errorf("remote: %s: %w: %v", op, repository.ErrUnavailable, e)
	case e.Status == http.StatusBadRequest && (e.pgCode() == "23514" || e.pgCode() == "22P02"):
		return fmt.Errorf("remote: %s: %w", op, repository.ErrInvalidInput)
	}
	return fmt.Errorf("remote: %s: %w", op, e)
}
