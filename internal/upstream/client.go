package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isdelr/profile-view/internal/models"
	"github.com/rs/zerolog/log"
)

// StatusError is returned when the API answers with a non-2xx status.
// Its message is the one shown to users in place of the resource.
type StatusError struct {
	Resource   string // "user", "posts", "post"
	StatusCode int
}

func (e *StatusError) Error() string {
	return "Failed to fetch " + e.Resource
}

// Client talks to a JSONPlaceholder-shaped REST API.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// New creates a Client for baseURL. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetUser fetches {base}/users/{id}.
func (c *Client) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := c.getJSON(ctx, "user", "/users/"+url.PathEscape(id), &user)
	return user, err
}

// GetPostsByUser fetches {base}/posts?userId={id}. An empty list is not an error.
func (c *Client) GetPostsByUser(ctx context.Context, id string) ([]models.Post, error) {
	posts := []models.Post{}
	err := c.getJSON(ctx, "posts", "/posts?userId="+url.QueryEscape(id), &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost fetches {base}/posts/{id}.
func (c *Client) GetPost(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := c.getJSON(ctx, "post", "/posts/"+url.PathEscape(id), &post)
	return post, err
}

func (c *Client) getJSON(ctx context.Context, resource, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Str("resource", resource).Str("path", path).Int("status", resp.StatusCode).Msg("Upstream returned non-2xx")
		return &StatusError{Resource: resource, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", resource, err)
	}
	return nil
}
