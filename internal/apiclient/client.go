// Package apiclient talks to the CRM backend over HTTP/JSON.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
)

// Credential is the bearer token of a logged-in operator.
type Credential struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// Valid reports whether a token is present.
func (c Credential) Valid() bool { return strings.TrimSpace(c.Token) != "" }

// NewUser is the add-user request body.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type appointmentEnvelope struct {
	Message     string               `json:"message"`
	Appointment leads.RawAppointment `json:"appointment"`
}

type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// Client wraps the backend REST endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs a backend client.
func New(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges a username or email and password for a credential.
func (c *Client) Login(ctx context.Context, identifier, password string) (Credential, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var cred Credential
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", Credential{}, body, &cred); err != nil {
		return Credential{}, fmt.Errorf("login: %w", err)
	}
	return cred, nil
}

// AddUser creates an operator account. Requires an admin credential.
func (c *Client) AddUser(ctx context.Context, cred Credential, user NewUser) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/settings/add-user", cred, user, nil); err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// ListAppointments returns every stored appointment.
func (c *Client) ListAppointments(ctx context.Context, cred Credential) ([]leads.RawAppointment, error) {
	var out []leads.RawAppointment
	if err := c.doJSON(ctx, http.MethodGet, "/api/appointments", cred, nil, &out); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// CreateAppointment stores a new appointment and returns it with its id.
func (c *Client) CreateAppointment(ctx context.Context, cred Credential, raw leads.RawAppointment) (leads.RawAppointment, error) {
	var env appointmentEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/appointments", cred, raw, &env); err != nil {
		return leads.RawAppointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return env.Appointment, nil
}

// UpdateAppointment applies a partial update.
func (c *Client) UpdateAppointment(ctx context.Context, cred Credential, id string, patch leads.Patch) (leads.RawAppointment, error) {
	var env appointmentEnvelope
	path := "/api/appointments/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, cred, patch, &env); err != nil {
		return leads.RawAppointment{}, fmt.Errorf("update appointment %s: %w", id, err)
	}
	return env.Appointment, nil
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, cred Credential, id string) error {
	path := "/api/appointments/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodDelete, path, cred, nil, nil); err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	return nil
}

// ListBookings returns the date and time of appointments in [from, to).
// The endpoint is public and carries no contact details.
func (c *Client) ListBookings(ctx context.Context, from, to time.Time) ([]availability.Booking, error) {
	q := url.Values{}
	q.Set("from", from.Format(availability.DayLayout))
	q.Set("to", to.Format(availability.DayLayout))

	var wrapped struct {
		Bookings []availability.Booking `json:"bookings"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/availability?"+q.Encode(), Credential{}, nil, &wrapped); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return wrapped.Bookings, nil
}

// Widget adapts the client to the public booking flow, which has no
// credential.
func (c *Client) Widget() *WidgetClient {
	return &WidgetClient{c: c}
}

// WidgetClient is the unauthenticated view used by the booking widget.
type WidgetClient struct {
	c *Client
}

func (w *WidgetClient) ListBookings(ctx context.Context, from, to time.Time) ([]availability.Booking, error) {
	return w.c.ListBookings(ctx, from, to)
}

func (w *WidgetClient) CreateAppointment(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error) {
	return w.c.CreateAppointment(ctx, Credential{}, raw)
}

func (c *Client) doJSON(ctx context.Context, method, path string, cred Credential, body any, out any) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred.Valid() {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		return fmt.Errorf("%w: %s %s", ErrResponseTooLarge, method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Message
			apiErr.Fields = eb.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		c.logger.Debug("backend returned error", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
