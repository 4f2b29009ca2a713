// Package rpc implements the JSON-RPC client for the hosted forum API.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// apiPath is where the platform mounts its JSON-RPC endpoint.
const apiPath = "/api/v1/api.php"

// RemoteError is any failure talking to the RPC endpoint. Its message
// carries the HTTP status or RPC error text that the harvest backoff
// policy inspects for classification.
type RemoteError struct {
	Method  string
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Client issues typed calls against one forum site's RPC endpoint. It is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

// NewClient builds a Client for the given base URL, e.g.
// "https://myguild.example.com".
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(baseURL, "/") + apiPath,
		logger:     logger,
	}
}

type envelope struct {
	Jsonrpc string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params map[string]any, out any) error {
	body, err := json.Marshal(envelope{Jsonrpc: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Method: method, Message: err.Error()}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		// The status code must survive into the message so the backoff
		// policy can recognize 429.
		return &RemoteError{Method: method, Message: fmt.Sprintf("status code: %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Method: method, Message: fmt.Sprintf("read response: %v", err)}
	}

	var env response
	if err := json.Unmarshal(raw, &env); err != nil {
		return &RemoteError{Method: method, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if env.Error != nil {
		return &RemoteError{Method: method, Message: fmt.Sprintf("code %d: %s", env.Error.Code, env.Error.Message)}
	}
	if len(env.Result) == 0 || bytes.Equal(bytes.TrimSpace(env.Result), []byte("null")) {
		return &RemoteError{Method: method, Message: "empty result"}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &RemoteError{Method: method, Message: fmt.Sprintf("decode result: %v", err)}
	}
	return nil
}

// Login exchanges credentials for a session id.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var res LoginResult
	err := c.call(ctx, "User.login", map[string]any{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", &RemoteError{Method: "User.login", Message: "empty session id"}
	}
	return res.SessionID, nil
}

// CategoriesAndForums fetches a preset's categories and subforum tree.
func (c *Client) CategoriesAndForums(ctx context.Context, sessionID, presetID string) (*CafResult, error) {
	var res CafResult
	err := c.call(ctx, "Forum.getCategoriesAndForums", map[string]any{
		"session_id": sessionID,
		"preset_id":  presetID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Forum fetches one page of a forum index. Page 0 means the first page.
func (c *Client) Forum(ctx context.Context, sessionID, forumID string, page int) (*ForumPage, error) {
	params := map[string]any{
		"session_id": sessionID,
		"forum_id":   forumID,
	}
	if page > 0 {
		// The API wants page numbers as strings.
		params["page"] = strconv.Itoa(page)
	}
	var res ForumPage
	if err := c.call(ctx, "Forum.getForum", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Thread fetches one page of a thread's posts. Page 0 means the first page.
func (c *Client) Thread(ctx context.Context, sessionID, threadID string, page int) (*ThreadPage, error) {
	params := map[string]any{
		"session_id": sessionID,
		"thread_id":  threadID,
	}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	var res ThreadPage
	if err := c.call(ctx, "Forum.getThread", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ApplicationTypes fetches the map of application type id to label.
func (c *Client) ApplicationTypes(ctx context.Context, sessionID string) (map[string]string, error) {
	var res map[string]string
	err := c.call(ctx, "Applications.getTypes", map[string]any{
		"session_id": sessionID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AppListOptions are the optional filters Applications.getList accepts.
// The harvester leaves them all unset; they exist because the remote
// signature has them.
type AppListOptions struct {
	SiteID     *int
	FormID     *int
	UnreadOnly *bool
	Search     *string
	Limit      *int
}

// Applications fetches one page of the application listing for a type.
func (c *Client) Applications(ctx context.Context, sessionID, appType string, page int, opts *AppListOptions) (*AppListPage, error) {
	params := map[string]any{
		"session_id": sessionID,
		"type":       appType,
	}
	if page > 0 {
		params["page"] = page
	}
	if opts != nil {
		if opts.SiteID != nil {
			params["site_id"] = *opts.SiteID
		}
		if opts.FormID != nil {
			params["application_form_id"] = *opts.FormID
		}
		if opts.UnreadOnly != nil {
			params["unread_only"] = *opts.UnreadOnly
		}
		if opts.Search != nil {
			params["search"] = *opts.Search
		}
		if opts.Limit != nil {
			params["limit"] = *opts.Limit
		}
	}
	var res AppListPage
	if err := c.call(ctx, "Applications.getList", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Application fetches one full form submission by id.
func (c *Client) Application(ctx context.Context, sessionID, applicationID string) (*Application, error) {
	var res Application
	err := c.call(ctx, "Applications.getApplication", map[string]any{
		"session_id":     sessionID,
		"application_id": applicationID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
