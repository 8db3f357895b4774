package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a running vigil daemon's control API.
type Client struct {
	rc *resty.Client
}

// Config holds client configuration.
type Config struct {
	// BaseURL includes the API base path, e.g. "http://127.0.0.1:8431/api".
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig matches the daemon's default listen address.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8431/api",
		Timeout: 30 * time.Second,
	}
}

// New creates an API client.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

// Start launches the named service and returns the new PID.
func (c *Client) Start(ctx context.Context, service string) (int, error) {
	var ok okResp
	if err := c.post(ctx, "/"+service+"/start", &ok); err != nil {
		return 0, err
	}
	return ok.PID, nil
}

// Stop terminates the named service.
func (c *Client) Stop(ctx context.Context, service string) error {
	return c.post(ctx, "/"+service+"/stop", &okResp{})
}

// Restart stops then starts the named service and returns the new PID.
func (c *Client) Restart(ctx context.Context, service string) (int, error) {
	var ok okResp
	if err := c.post(ctx, "/"+service+"/restart", &ok); err != nil {
		return 0, err
	}
	return ok.PID, nil
}

// Status reports one service's state.
func (c *Client) Status(ctx context.Context, service string) (ServiceStatus, error) {
	var st ServiceStatus
	err := c.get(ctx, "/"+service+"/status", nil, &st)
	return st, err
}

// Statuses reports both services, server first.
func (c *Client) Statuses(ctx context.Context) ([]ServiceStatus, error) {
	var sts []ServiceStatus
	err := c.get(ctx, "/status", nil, &sts)
	return sts, err
}

// Events returns up to limit recent events, oldest first. limit 0 means all
// the daemon retains.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	var evs []Event
	err := c.get(ctx, "/events", map[string]string{"limit": fmt.Sprint(limit)}, &evs)
	return evs, err
}

// Logs returns up to limit stored log entries for a component, newest first.
func (c *Client) Logs(ctx context.Context, component string, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	err := c.get(ctx, "/logs", map[string]string{
		"component": component,
		"limit":     fmt.Sprint(limit),
	}, &entries)
	return entries, err
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	var apiErr errorResp
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	return checkResp(resp, err, apiErr)
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	var apiErr errorResp
	req := c.rc.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&apiErr)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return checkResp(resp, err, apiErr)
}

func checkResp(resp *resty.Response, err error, apiErr errorResp) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode())
	}
	return nil
}
