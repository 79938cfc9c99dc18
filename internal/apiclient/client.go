// Package apiclient talks to the NutriScan endpoints the page controllers
// consume. It keeps the session and CSRF cookies in a jar and echoes the
// CSRF token on every mutating call.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
	csrfField  = "csrfmiddlewaretoken"
)

var (
	ErrLoginFailed = errors.New("login failed: check email and password")
	ErrNoCSRFToken = errors.New("csrf token not found")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// ScanResponse is the single response shape of the scan endpoint. Success is
// always present; BarcodeData is nil when nothing was decoded.
type ScanResponse struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	ImageWithBoxes string  `json:"image_with_boxes"`
	BarcodeData    *string `json:"barcode_data,omitempty"`
	DetectionCount int     `json:"detection_count"`
}

type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MetricUpdate struct {
	Success bool     `json:"success"`
	Metric  string   `json:"metric"`
	Value   float64  `json:"value"`
	BMI     *float64 `json:"bmi,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type MetricsHistory struct {
	Dates   []string  `json:"dates"`
	Weights []float64 `json:"weights"`
}

// ScanRequest carries the staged image and the optional manual barcode.
type ScanRequest struct {
	FileName      string
	ContentType   string
	Data          []byte
	ManualBarcode string
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar is replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

var tokenPattern = regexp.MustCompile(`name="` + csrfField + `"\s+value="([^"]+)"`)

// Login fetches the login form for its CSRF token and posts the credentials.
// The server redirects away from the login page on success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	loginURL := c.url("/accounts/login/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	token := c.csrfToken()
	if m := tokenPattern.FindSubmatch(body); m != nil {
		token = string(m[1])
	}
	if token == "" {
		return ErrNoCSRFToken
	}

	form := url.Values{
		"email":    {email},
		"password": {password},
		csrfField:  {token},
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(csrfHeader, token)

	resp, err = c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 || resp.Request.URL.Path == "/accounts/login/" {
		return ErrLoginFailed
	}
	return nil
}

// Scan posts the staged image as multipart form data.
func (c *Client) Scan(ctx context.Context, in ScanRequest) (*ScanResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(in.FileName)))
	h.Set("Content-Type", in.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, err
	}
	if in.ManualBarcode != "" {
		if err := w.WriteField("manual_barcode_data", in.ManualBarcode); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newMutating(ctx, "/scan/", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	var out ScanResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearSession(ctx context.Context) (*ClearResponse, error) {
	req, err := c.newMutating(ctx, "/scan/clear-session/", "", nil)
	if err != nil {
		return nil, err
	}
	var out ClearResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &StatusError{Code: http.StatusOK, Message: out.Message}
	}
	return &out, nil
}

func (c *Client) UpdateMetric(ctx context.Context, metric string, value float64) (*MetricUpdate, error) {
	payload, err := json.Marshal(map[string]any{"metric": metric, "value": value})
	if err != nil {
		return nil, err
	}
	req, err := c.newMutating(ctx, "/accounts/profile/metrics/", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	var out MetricUpdate
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, &StatusError{Code: http.StatusOK, Message: out.Error}
	}
	return &out, nil
}

func (c *Client) MetricsHistory(ctx context.Context) (*MetricsHistory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/accounts/profile/metrics/history/"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var out MetricsHistory
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if len(out.Dates) != len(out.Weights) {
		return nil, fmt.Errorf("metrics history: %d dates but %d weights", len(out.Dates), len(out.Weights))
	}
	return &out, nil
}

func (c *Client) newMutating(ctx context.Context, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.csrfToken(); token != "" {
		req.Header.Set(csrfHeader, token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) csrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookie {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// errorMessage pulls "message" or "error" out of a JSON error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
