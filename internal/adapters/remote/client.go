// Package remote is the HTTP transport to the habit service. Every failure is
// returned as a *domain.RemoteError tagged with its kind.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

const (
	DefaultTimeout = 10 * time.Second

	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

var ErrNoTokenSource = errors.New("remote: no credential source configured")

// TokenSource supplies the bearer credential for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ domain.HabitRemote = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout bounds every request, connection and body read included. A
// client passed to WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op     string
	method string
	path   string
	body   any
	out    any
	public bool
	// conflicts lists the statuses reported as KindSoftConflict.
	conflicts []int
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, r request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &domain.RemoteError{Op: r.op, Kind: domain.KindTransport, Err: err}
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	if !r.public {
		if c.tokens == nil {
			return fmt.Errorf("%s: %w", r.op, ErrNoTokenSource)
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", r.op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteError{Op: r.op, Kind: domain.KindTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.RemoteError{Op: r.op, Kind: domain.KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("remote call",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(r, resp.StatusCode, data)
	}

	if r.out == nil {
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return &domain.RemoteError{
			Op:         r.op,
			Kind:       domain.KindHardFailure,
			StatusCode: resp.StatusCode,
			Message:    "undecodable response",
			Err:        err,
		}
	}
	return nil
}

func classify(r request, status int, data []byte) *domain.RemoteError {
	rerr := &domain.RemoteError{Op: r.op, Kind: domain.KindHardFailure, StatusCode: status}

	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		rerr.Message = eb.Message
		if rerr.Message == "" {
			rerr.Message = eb.Error
		}
	}
	if rerr.Message == "" {
		rerr.Message = http.StatusText(status)
	}

	for _, s := range r.conflicts {
		if s == status {
			rerr.Kind = domain.KindSoftConflict
			break
		}
	}
	return rerr
}

func habitPath(id string, suffix ...string) string {
	return "/habitos/" + url.PathEscape(id) + strings.Join(suffix, "")
}

type habitsEnvelope struct {
	Habits []domain.Habit `json:"habitos"`
}

type habitEnvelope struct {
	Habit *domain.Habit `json:"habito"`
}

type reorderRequest struct {
	Order []string `json:"ordemHabitos"`
}

// decodeHabit accepts both a bare habit and a {"habito": ...} envelope.
func decodeHabit(op string, raw json.RawMessage) (*domain.Habit, error) {
	var env habitEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Habit != nil {
		return withCompletions(env.Habit), nil
	}

	var h domain.Habit
	if err := json.Unmarshal(raw, &h); err != nil || h.ID == "" {
		return nil, &domain.RemoteError{Op: op, Kind: domain.KindHardFailure, Message: "response carries no habit", Err: err}
	}
	return withCompletions(&h), nil
}

func withCompletions(h *domain.Habit) *domain.Habit {
	if h.CompletionDates == nil {
		h.CompletionDates = []string{}
	}
	return h
}

func (c *Client) ListHabits(ctx context.Context) ([]domain.Habit, error) {
	var out habitsEnvelope
	err := c.do(ctx, request{op: "list habits", method: http.MethodGet, path: "/habitos", out: &out})
	if err != nil {
		return nil, err
	}
	if out.Habits == nil {
		return []domain.Habit{}, nil
	}
	for i := range out.Habits {
		withCompletions(&out.Habits[i])
	}
	return out.Habits, nil
}

func (c *Client) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	var out domain.GlobalStats
	err := c.do(ctx, request{op: "global stats", method: http.MethodGet, path: "/stats/globais", out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateHabit(ctx context.Context, input domain.CreateHabitInput) (*domain.Habit, error) {
	const op = "create habit"
	var raw json.RawMessage
	err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/habitos", body: input, out: &raw})
	if err != nil {
		return nil, err
	}
	return decodeHabit(op, raw)
}

func (c *Client) UpdateHabit(ctx context.Context, id string, input domain.UpdateHabitInput) (*domain.Habit, error) {
	const op = "update habit"
	var raw json.RawMessage
	err := c.do(ctx, request{op: op, method: http.MethodPut, path: habitPath(id), body: input, out: &raw})
	if err != nil {
		return nil, err
	}
	return decodeHabit(op, raw)
}

// ToggleCompletion reports 400 and 409 as soft conflicts: the habit is
// already complete for the period.
func (c *Client) ToggleCompletion(ctx context.Context, id string) (*domain.Habit, error) {
	const op = "toggle habit"
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:        op,
		method:    http.MethodPost,
		path:      habitPath(id, "/complete"),
		out:       &raw,
		conflicts: []int{http.StatusBadRequest, http.StatusConflict},
	})
	if err != nil {
		return nil, err
	}
	return decodeHabit(op, raw)
}

func (c *Client) ReorderHabits(ctx context.Context, orderedIDs []string) error {
	return c.do(ctx, request{
		op:     "reorder habits",
		method: http.MethodPatch,
		path:   "/habitos/reordenar",
		body:   reorderRequest{Order: orderedIDs},
	})
}

func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "delete habit", method: http.MethodDelete, path: habitPath(id)})
}

// AuthResult is the credential pair returned by login and registration.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"usuario"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type registerRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/usuarios/login",
		body:   loginRequest{Email: email, Password: password},
		out:    &out,
		public: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/usuarios/register",
		body:   registerRequest{Name: name, Email: email, Password: password},
		out:    &out,
		public: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
