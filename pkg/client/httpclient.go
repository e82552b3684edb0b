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
)

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewHttpClient(baseURL string, timeout time.Duration) *HttpClient {
	return &HttpClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// Request describes one call. Authorization, when set, is sent verbatim
// as the Authorization header.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Body          any
	Authorization string
}

func (c *HttpClient) GET(ctx context.Context, path string, auth string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Authorization: auth})
}

func (c *HttpClient) POST(ctx context.Context, path string, body any, auth string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Authorization: auth})
}

func (c *HttpClient) PUT(ctx context.Context, path string, query url.Values, body any, auth string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Query: query, Body: body, Authorization: auth})
}

// Do performs the request and reads the whole body. Non-2xx statuses are
// returned as *StatusError together with the response.
func (c *HttpClient) Do(ctx context.Context, r Request) (*Response, error) {
	var reqBody io.Reader
	if r.Body != nil {
		jsonData, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	target := c.BaseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Authorization != "" {
		req.Header.Set("Authorization", r.Authorization)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: request failed: %w", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", r.Method, r.Path, err)
	}

	out := &Response{Response: resp, Body: respBody}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{
			Method:     r.Method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			Message:    GetErrorMessage(out),
		}
	}
	return out, nil
}

// Ping checks GET /health on the remote service.
func (c *HttpClient) Ping(ctx context.Context) error {
	_, err := c.GET(ctx, "/health", "")
	return err
}

func GetErrorMessage(resp *Response) string {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return strings.TrimSpace(string(resp.Body))
	}

	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	if errResp.Code != "" {
		return errResp.Code
	}
	return http.StatusText(resp.StatusCode)
}
