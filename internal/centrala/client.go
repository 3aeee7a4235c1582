// Package centrala wraps the two remote endpoints the workflows depend on:
// the report/session endpoint driving conversations and result submission,
// and the relational-data endpoint backing graph synchronization.
package centrala

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/config"
)

var fastjson = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	reportPath   = "/report"
	databasePath = "/apidb"
	// mediaPrefix is the remote convention for cached/derived media.
	mediaPrefix = "/dane/barbara/"

	queryUsers       = "SELECT * FROM users"
	queryConnections = "SELECT * FROM connections"
)

// Client talks to the centrala endpoints over one shared http.Client. All
// outbound calls pass through a rate limiter. Transport and decode failures
// surface as errors at this boundary and are never retried here.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Compile-time interface checks.
var (
	_ schemas.DataSource   = (*Client)(nil)
	_ schemas.TaskAPI      = (*Client)(nil)
	_ schemas.MediaFetcher = (*Client)(nil)
)

// New creates a client for the configured endpoints.
func New(cfg config.CentralaConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		log:     logger.Named("centrala"),
	}
}

// reportPayload is the wire shape of every report/session request.
type reportPayload struct {
	Task   string `json:"task"`
	APIKey string `json:"apikey"`
	Answer any    `json:"answer"`
}

// databasePayload is the wire shape of every relational-data request.
type databasePayload struct {
	Task   string `json:"task"`
	APIKey string `json:"apikey"`
	Query  string `json:"query"`
}

// Report posts {task, apikey, answer} to the report endpoint and decodes the
// reply. A non-2xx status is a transport error carrying the response body.
func (c *Client) Report(ctx context.Context, task string, answer any) (*schemas.TaskReply, error) {
	body, err := c.post(ctx, reportPath, reportPayload{Task: task, APIKey: c.apiKey, Answer: answer})
	if err != nil {
		return nil, err
	}

	reply := &schemas.TaskReply{Raw: body}
	if err := fastjson.Unmarshal(body, reply); err != nil {
		return nil, fmt.Errorf("decoding report reply: %w", err)
	}
	c.log.Debug("Report accepted", zap.String("task", task), zap.Int("code", reply.Code))
	return reply, nil
}

// Query passes an opaque query through to the relational-data endpoint and
// returns the raw "reply" element.
func (c *Client) Query(ctx context.Context, query string) (json.RawMessage, error) {
	body, err := c.post(ctx, databasePath, databasePayload{Task: "database", APIKey: c.apiKey, Query: query})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Reply json.RawMessage `json:"reply"`
	}
	if err := fastjson.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding database reply: %w", err)
	}
	return envelope.Reply, nil
}

// FetchUsers returns all user rows narrowed to {id, name}. The remote table
// exposes the display name under "username".
func (c *Client) FetchUsers(ctx context.Context) ([]schemas.UserRow, error) {
	reply, err := c.Query(ctx, queryUsers)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}

	var raw []struct {
		ID       json.Number `json:"id"`
		Username string      `json:"username"`
	}
	if err := fastjson.Unmarshal(reply, &raw); err != nil {
		return nil, fmt.Errorf("decoding user rows: %w", err)
	}

	users := make([]schemas.UserRow, 0, len(raw))
	for _, r := range raw {
		users = append(users, schemas.UserRow{ID: r.ID.String(), Name: r.Username})
	}
	c.log.Info("Fetched users", zap.Int("count", len(users)))
	return users, nil
}

// FetchConnections returns all KNOWS relationship rows. The remote table pairs
// user IDs as "user1_id"/"user2_id".
func (c *Client) FetchConnections(ctx context.Context) ([]schemas.ConnectionRow, error) {
	reply, err := c.Query(ctx, queryConnections)
	if err != nil {
		return nil, fmt.Errorf("fetching connections: %w", err)
	}

	var raw []struct {
		User1ID json.Number `json:"user1_id"`
		User2ID json.Number `json:"user2_id"`
	}
	if err := fastjson.Unmarshal(reply, &raw); err != nil {
		return nil, fmt.Errorf("decoding connection rows: %w", err)
	}

	connections := make([]schemas.ConnectionRow, 0, len(raw))
	for _, r := range raw {
		connections = append(connections, schemas.ConnectionRow{SourceID: r.User1ID.String(), TargetID: r.User2ID.String()})
	}
	c.log.Info("Fetched connections", zap.Int("count", len(connections)))
	return connections, nil
}

// MediaURL resolves a bare filename to its full URL under the remote media
// convention.
func (c *Client) MediaURL(filename string) string {
	if strings.HasPrefix(filename, "http://") || strings.HasPrefix(filename, "https://") {
		return filename
	}
	return c.baseURL + mediaPrefix + filename
}

// Download fetches raw media bytes from a URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// post sends one JSON payload and returns the response body, treating any
// non-2xx status as an error carrying the body text.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := fastjson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}

	c.log.Debug("Remote call complete",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote error from %s: status %d, body: %s", url, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
