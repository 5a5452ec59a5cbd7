package transport

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
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIngestPath = "/api/v1/logs/batch"
	defaultTokenTTL   = 2 * time.Minute
	defaultTimeout    = 10 * time.Second

	// tokenSkew renews a cached bearer token slightly before expiry so a
	// request never leaves with a token the controller would reject.
	tokenSkew = 10 * time.Second
)

// Config controls the ingestion client.
type Config struct {
	BaseURL      string
	IngestPath   string
	ClientID     string
	ClientSecret []byte
	TokenTTL     time.Duration
	Timeout      time.Duration
	UserAgent    string
}

// StatusError reports a non-success response from the controller.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("controller returned status %d", e.Code)
}

// Client delivers masked records to the controller. It signs a short-lived
// HS256 client assertion per token window and reuses it across requests.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time

	now func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport BaseURL required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport BaseURL invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("transport BaseURL must be http or https")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("transport ClientID required")
	}
	if len(cfg.ClientSecret) == 0 {
		return nil, errors.New("transport ClientSecret required")
	}
	if cfg.IngestPath == "" {
		cfg.IngestPath = defaultIngestPath
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + cfg.IngestPath,
		http:     &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
	}, nil
}

// Send delivers a single record.
func (c *Client) Send(ctx context.Context, record any) error {
	return c.post(ctx, record)
}

// SendBatch delivers an ordered batch of records as one JSON array.
func (c *Client) SendBatch(ctx context.Context, records any) error {
	return c.post(ctx, records)
}

func (c *Client) post(ctx context.Context, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode ingest payload: %w", err)
	}

	token, err := c.bearer(c.now())
	if err != nil {
		return fmt.Errorf("mint bearer token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func (c *Client) bearer(now time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && now.Before(c.expires.Add(-tokenSkew)) {
		return c.token, nil
	}

	expires := now.Add(c.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    c.cfg.ClientID,
		Subject:   c.cfg.ClientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.ClientSecret)
	if err != nil {
		return "", err
	}

	c.token = signed
	c.expires = expires
	return signed, nil
}
