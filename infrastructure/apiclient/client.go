package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"feellog/domain/contracts"
	"feellog/domain/records"
	"feellog/domain/session"
	"feellog/logging"
)

// Endpoint paths relative to the API base URL.
const (
	PathAuthStatus   = "/auth/status"
	PathLogin        = "/login_email"
	PathGuestLogin   = "/guest_login"
	PathLogout       = "/logout"
	PathDashboard    = "/dashboard"
	PathPersona      = "/settings/persona"
	PathAnalyzeVideo = "/analyze_video"
	PathLatestStatus = "/records/latest-status"
)

// Config holds Feel-Log API client configuration.
type Config struct {
	BaseURL string `env:"FEELLOG_API_BASE_URL" default:"http://localhost:5000/api"`
	// Timeout of zero leaves requests unbounded.
	Timeout         time.Duration `env:"FEELLOG_API_TIMEOUT" default:"0"`
	WithCredentials bool          `env:"FEELLOG_API_WITH_CREDENTIALS" default:"true"`
}

// DefaultConfig returns the default API client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:5000/api",
		WithCredentials: true,
	}
}

// Client talks to the Feel-Log HTTP API.
// Session cookies set by the API are kept in a jar and forwarded on every
// request when credentials are enabled.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ contracts.FeelLogAPI = (*Client)(nil)

// New creates a client from configuration.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.WithCredentials {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return NewWithHTTPClient(cfg.BaseURL, httpClient), nil
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logging.Default().WithComponent("feellog_api_client"),
	}
}

// messageResponse is the envelope every Feel-Log error (and most successes) uses.
type messageResponse struct {
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string        `json:"message"`
	User    *session.User `json:"user"`
}

type dashboardResponse struct {
	IsLoggedIn bool             `json:"is_logged_in"`
	Reports    []session.Report `json:"reports"`
}

type personaRequest struct {
	ChatbotID string `json:"chatbot_id"`
}

type analyzeVideoResponse struct {
	Message  string           `json:"message"`
	RecordID records.RecordID `json:"record_id"`
}

// LatestStatus fetches the latest record status of the signed-in user.
func (c *Client) LatestStatus(ctx context.Context) (records.PollResult, error) {
	var result records.PollResult
	if err := c.doJSON(ctx, http.MethodGet, PathLatestStatus, nil, &result); err != nil {
		return records.PollResult{}, err
	}
	return result, nil
}

// AuthStatus checks whether the current session is signed in.
func (c *Client) AuthStatus(ctx context.Context) (*session.AuthStatus, error) {
	var status session.AuthStatus
	if err := c.doJSON(ctx, http.MethodGet, PathAuthStatus, nil, &status); err != nil {
		return nil, err
	}
	if !status.IsLoggedIn {
		status.User = nil
	}
	return &status, nil
}

// Login signs in with email and password. The session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*session.User, error) {
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, PathLogin, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// GuestLogin clears any server-side session and enters guest mode.
func (c *Client) GuestLogin(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, PathGuestLogin, nil, nil)
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, PathLogout, nil, nil)
}

// Dashboard lists the recent report cards.
func (c *Client) Dashboard(ctx context.Context) ([]session.Report, error) {
	var resp dashboardResponse
	if err := c.doJSON(ctx, http.MethodGet, PathDashboard, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Reports == nil {
		resp.Reports = []session.Report{}
	}
	return resp.Reports, nil
}

// SetPersona selects the chatbot persona and returns the API's confirmation message.
func (c *Client) SetPersona(ctx context.Context, personaID string) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, PathPersona, personaRequest{ChatbotID: personaID}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// AnalyzeVideo uploads a video for analysis and returns the created record id.
func (c *Client) AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (records.RecordID, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, video); err != nil {
		return "", fmt.Errorf("copy video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathAnalyzeVideo, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp analyzeVideoResponse
	if err := c.do(req, PathAnalyzeVideo, &resp); err != nil {
		return "", err
	}
	return resp.RecordID, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if !quietResponse(path, resp.StatusCode) {
		c.logger.Performance(req.Method+" "+path, time.Since(start),
			slog.String("subsystem", "feellog_api"),
			slog.Int("status", resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &contracts.APIError{StatusCode: resp.StatusCode, Endpoint: path}
		var msg messageResponse
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// quietResponse reports responses that repeat every poll while signed out.
func quietResponse(path string, status int) bool {
	return path == PathLatestStatus && status == http.StatusUnauthorized
}
