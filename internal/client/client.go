// Package client is a typed HTTP client for the glimpse API. The viewstate
// engine drives it for interaction mutations; it is also usable standalone.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"glimpse/internal/model"
)

// DefaultTimeout bounds each request when the caller's context carries
// no deadline of its own.
const DefaultTimeout = 10 * time.Second

// APIError is a structured error decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// errorEnvelope mirrors the server's error response shape.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the glimpse REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests inject
// httptest servers this way).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token (after login or refresh).
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login authenticates and stores the returned access token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var res model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", model.LoginRequest{
		Username: username,
		Password: password,
	}, &res)
	if err != nil {
		return nil, err
	}
	c.token = res.AccessToken
	return &res, nil
}

// Register creates a new account. It does not log in; call Login after.
func (c *Client) Register(ctx context.Context, username, password, displayName string) (*model.User, error) {
	var res model.User
	err := c.do(ctx, http.MethodPost, "/auth/register", model.RegisterRequest{
		Username:    username,
		Password:    password,
		DisplayName: displayName,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreatePost publishes a post from pre-uploaded media URLs.
func (c *Client) CreatePost(ctx context.Context, caption *string, mediaURLs []string) (*model.Post, error) {
	var res model.Post
	err := c.do(ctx, http.MethodPost, "/posts", model.CreatePostRequest{
		Caption:   caption,
		MediaURLs: mediaURLs,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateStory publishes a story from a pre-uploaded media URL.
func (c *Client) CreateStory(ctx context.Context, req model.CreateStoryRequest) (*model.Story, error) {
	var res model.Story
	if err := c.do(ctx, http.MethodPost, "/stories", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetLike likes (liked=true) or unlikes a post and returns the server's
// authoritative like count.
func (c *Client) SetLike(ctx context.Context, postID int64, liked bool) (*model.LikeResponse, error) {
	method := http.MethodPost
	if !liked {
		method = http.MethodDelete
	}

	var res model.LikeResponse
	if err := c.do(ctx, method, fmt.Sprintf("/posts/%d/like", postID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetSave saves (saved=true) or unsaves a post.
func (c *Client) SetSave(ctx context.Context, postID int64, saved bool) (*model.SaveResponse, error) {
	method := http.MethodPost
	if !saved {
		method = http.MethodDelete
	}

	var res model.SaveResponse
	if err := c.do(ctx, method, fmt.Sprintf("/posts/%d/save", postID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateComment posts a comment and returns the stored comment with its
// server-assigned id and timestamp.
func (c *Client) CreateComment(ctx context.Context, postID int64, text string) (*model.CreateCommentResponse, error) {
	var res model.CreateCommentResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID),
		model.CreateCommentRequest{Content: text}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchComments retrieves a page of comments for a post, oldest first.
func (c *Client) FetchComments(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error) {
	path := fmt.Sprintf("/posts/%d/comments?limit=%d", postID, limit)
	if cursor != nil {
		path += "&cursor=" + *cursor
	}

	var res model.CommentListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchPost retrieves a single post with author info and viewer flags.
func (c *Client) FetchPost(ctx context.Context, postID int64) (*model.Post, error) {
	var res model.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchFeed retrieves a page of the viewer's feed.
func (c *Client) FetchFeed(ctx context.Context, cursor *string, limit int) (*model.FeedResponse, error) {
	path := fmt.Sprintf("/feed?limit=%d", limit)
	if cursor != nil {
		path += "&cursor=" + *cursor
	}

	var res model.FeedResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchUserStories retrieves a user's active stories, oldest first.
func (c *Client) FetchUserStories(ctx context.Context, userID int64) (*model.StoryListResponse, error) {
	var res model.StoryListResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/stories", userID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchStoryTray retrieves the home tray of followed users' stories.
func (c *Client) FetchStoryTray(ctx context.Context) (*model.StoryTrayResponse, error) {
	var res model.StoryTrayResponse
	if err := c.do(ctx, http.MethodGet, "/stories/tray", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkStoryViewed records a story view and returns the view count.
func (c *Client) MarkStoryViewed(ctx context.Context, storyID int64) (*model.StoryViewResponse, error) {
	var res model.StoryViewResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/stories/%d/view", storyID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do performs a request and decodes either the success payload or the
// server's error envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN"}
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
