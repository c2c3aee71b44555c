package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"blogfront/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogfront_api_requests_total",
		Help: "The total number of requests sent to the posts API",
	}, []string{"method", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogfront_api_request_duration_seconds",
		Help:    "Latency of posts API requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // Start at 5ms, double each bucket
	}, []string{"method"})
)

const DefaultTimeout = 10 * time.Second

// StatusError is returned when the posts API answers with a non-2xx status
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the posts API
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == fasthttp.StatusNotFound
}

type ClientConfig struct {
	// Base URL of the posts API, e.g. http://reduxblog.herokuapp.com/api
	BaseURL string

	// Key partitions posts on the API, sent as ?key=
	Key string

	// Timeout for a single request
	Timeout time.Duration

	UserAgent string
}

// Client talks to the external posts API
type Client struct {
	base    *url.URL
	key     string
	timeout time.Duration
	http    *fasthttp.Client
}

func NewClient(config ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", config.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host required", config.BaseURL)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		base:    base,
		key:     config.Key,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                     config.UserAgent,
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			MaxIdleConnDuration:      time.Minute,
			NoDefaultUserAgentHeader: config.UserAgent == "",
		},
	}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if c.key != "" {
		q := u.Query()
		q.Set("key", c.key)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func postPath(id models.PostID) string {
	return "/posts/" + url.PathEscape(id.String())
}

// ListPosts fetches every post
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, fasthttp.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost fetches a single post
func (c *Client) GetPost(ctx context.Context, id models.PostID) (models.Post, error) {
	var post models.Post
	err := c.do(ctx, fasthttp.MethodGet, postPath(id), nil, &post)
	return post, err
}

// CreatePost stores a new post and returns it with its id
func (c *Client) CreatePost(ctx context.Context, values models.PostValues) (models.Post, error) {
	var post models.Post
	err := c.do(ctx, fasthttp.MethodPost, "/posts", values, &post)
	return post, err
}

// DeletePost removes a post
func (c *Client) DeletePost(ctx context.Context, id models.PostID) error {
	return c.do(ctx, fasthttp.MethodDelete, postPath(id), nil, nil)
}

// Ping checks that the API answers the list endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, fasthttp.MethodGet, "/posts", nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint(path))
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := c.http.DoDeadline(req, resp, deadline)
	apiLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		apiRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	apiRequests.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()

	log.WithFields(log.Fields{
		"method":  method,
		"path":    path,
		"status":  status,
		"latency": time.Since(start),
	}).Debug("Posts API request")

	if status < 200 || status > 299 {
		return &StatusError{Method: method, Path: path, Code: status, Body: string(resp.Body())}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: error decoding response: %w", method, path, err)
	}
	return nil
}
