// Package api is a thin HTTP wrapper around the directory server API used
// by the userctl CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/userdir/internal/client/config"
)

// Client talks to one directory server. Credentials or a bearer token are
// attached to every request depending on which of SetToken/SetCredentials
// was called.
type Client struct {
	baseURL string
	http    *http.Client

	token    string
	login    string
	password string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ServerAddr, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// SetToken switches the client to bearer-token authentication.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetCredentials switches the client to X-Login/X-Password authentication.
func (c *Client) SetCredentials(login, password string) {
	c.login = login
	c.password = password
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type CreateUserRequest struct {
	Login    string     `json:"login"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Gender   int        `json:"gender"`
	Birthday *time.Time `json:"birthday,omitempty"`
	Admin    bool       `json:"admin"`
}

type UpdateInfoRequest struct {
	TargetLogin string     `json:"targetLogin"`
	Name        string     `json:"name"`
	Gender      int        `json:"gender"`
	Birthday    *time.Time `json:"birthday,omitempty"`
}

type UserSummary struct {
	Login     string     `json:"login"`
	Name      string     `json:"name"`
	Gender    int        `json:"gender"`
	Birthday  *time.Time `json:"birthday"`
	CreatedOn *time.Time `json:"createdOn"`
	IsActive  *bool      `json:"isActive"`
}

type UserList struct {
	Message string        `json:"message"`
	Users   []UserSummary `json:"users"`
}

func (c *Client) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	var pair TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"login": login, "password": password}, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserSummary, error) {
	var resp struct {
		Message     string      `json:"message"`
		CreatedUser UserSummary `json:"createdUser"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp.CreatedUser, nil
}

func (c *Client) UpdateInfo(ctx context.Context, req *UpdateInfoRequest) (*UserSummary, error) {
	var resp struct {
		Message string      `json:"message"`
		Updated UserSummary `json:"updated"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/api/users/update/info", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Updated, nil
}

func (c *Client) ChangePassword(ctx context.Context, targetLogin, newPassword string) (string, error) {
	body, err := c.doRaw(ctx, http.MethodPut, "/api/users/update/password",
		map[string]string{"targetLogin": targetLogin, "newPassword": newPassword})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) ChangeLogin(ctx context.Context, targetLogin, newLogin string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/users/update/login",
		map[string]string{"targetLogin": targetLogin, "newLogin": newLogin}, nil)
}

func (c *Client) ActiveUsers(ctx context.Context) (*UserList, error) {
	var list UserList
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/active", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) UserByLogin(ctx context.Context, login string) (*UserSummary, error) {
	var u UserSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/by-login/"+login, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Self(ctx context.Context) (*UserSummary, error) {
	var u UserSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/self", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UsersOlderThan(ctx context.Context, age int) (*UserList, error) {
	var list UserList
	path := fmt.Sprintf("/api/users/older-than/%d", age)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) DeleteUser(ctx context.Context, login string, soft bool) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.doJSON(ctx, http.MethodDelete, "/api/users/"+login,
		map[string]bool{"softDelete": soft}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) RestoreUser(ctx context.Context, login string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/api/users/restore/"+login, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// doJSON performs a request and decodes the JSON response into out when out
// is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.login != "" {
		req.Header.Set("X-Login", c.login)
		req.Header.Set("X-Password", c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
