package fetch

import (
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/bearcattt/scramjet/internal/infrastructure/config"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
)

// ErrBodyTooLarge is returned when a response exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Result is a fetched resource. URL is the final URL after redirects, which
// is what page documents use as their base.
type Result struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the response carried a 2xx status.
func (r *Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client wraps resty with rate limiting and transparent decompression.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter

	maxBody int64
	metrics *monitoring.Metrics
}

// NewClient creates a production-ready fetch client.
func NewClient(cfg config.FetchConfig) *Client {
	// Create underlying retryable client
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil // Disable logging

	// Create resty client with retry support
	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(30*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		// Announce the codings decoded below. Resty gunzips parsed bodies
		// on its own, so response parsing is disabled and every coding is
		// decoded here from the raw stream. That also lets the size cap
		// apply to decoded bytes rather than wire bytes.
		SetHeader("Accept-Encoding", "gzip, deflate, zstd").
		SetDoNotParseResponse(true)

	// Configure transport settings
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Client{
		Resty:   restyClient,
		Limiter: limiter,
		maxBody: cfg.MaxBodyBytes,
	}
}

// WithMetrics attaches metrics collection.
func (c *Client) WithMetrics(m *monitoring.Metrics) *Client {
	c.metrics = m
	return c
}

// Get fetches a URL. Transport failures surface as errors; HTTP error
// statuses surface in the result for the caller to judge.
func (c *Client) Get(ctx context.Context, rawURL string) (*Result, error) {
	var timer *monitoring.Timer
	if c.metrics != nil {
		timer = monitoring.NewTimer(c.metrics, "fetch", "get")
	}

	res, err := c.get(ctx, rawURL)
	if timer != nil {
		if err != nil {
			timer.Stop("error")
		} else {
			timer.Stop("success")
		}
	}
	return res, err
}

func (c *Client) get(ctx context.Context, rawURL string) (*Result, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := c.Resty.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	var body []byte
	if raw := resp.RawBody(); raw != nil {
		defer raw.Close()
		body, err = decodeBody(resp.Header().Get("Content-Encoding"), raw, c.maxBody)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}

	finalURL := rawURL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Result{
		URL:         finalURL,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}

// decodeBody decompresses a body that carries a content coding we support.
// Unknown codings pass through untouched. The cap applies to decoded bytes.
func decodeBody(encoding string, raw io.Reader, max int64) ([]byte, error) {
	reader := raw

	switch strings.TrimSpace(strings.ToLower(encoding)) {
	case "gzip":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		zr, err := zlib.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("deflate body: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "zstd":
		zr, err := zstd.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("zstd body: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	if max > 0 {
		reader = io.LimitReader(reader, max+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if max > 0 && int64(len(data)) > max {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}
