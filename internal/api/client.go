// Package api is the typed client for the BiteSnap recipe backend. Every
// backend operation has one method; a call is a single attempt with no retry
// or backoff, and the caller decides how to react to a rejection.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/bitesnap/internal/model"
)

// Client talks to the backend REST API at a fixed base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL (scheme and host, no
// trailing slash required).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AuthToken string `json:"auth_token"`
}

// SignIn exchanges credentials for a backend token.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	var resp signInResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/token/login/", "", signInRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AuthToken == "" {
		return "", fmt.Errorf("sign in: backend returned no token")
	}
	return resp.AuthToken, nil
}

// SignOut revokes the token on the backend.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/token/logout/", token, nil, nil)
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// SignUp registers a new account. A successful sign-up does not authenticate.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users/", "", req, nil)
}

// CurrentUser fetches the account owning the token.
func (c *Client) CurrentUser(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/api/users/me/", token, nil, &u)
	return u, err
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the account password.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	return c.do(ctx, http.MethodPost, "/api/users/set_password/", token, changePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPassword asks the backend to send a reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/users/reset_password/", "", resetPasswordRequest{Email: email}, nil)
}

// RecipeParams filters and pages the recipe list.
type RecipeParams struct {
	Page        int64
	Limit       int64
	Author      int64
	IsFavorited bool
	Tags        []string
}

func (p RecipeParams) query() string {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = model.PageLimit
	}
	q := url.Values{}
	q.Set("page", strconv.FormatInt(p.Page, 10))
	q.Set("limit", strconv.FormatInt(p.Limit, 10))
	if p.Author != 0 {
		q.Set("author", strconv.FormatInt(p.Author, 10))
	}
	if p.IsFavorited {
		q.Set("is_favorited", "1")
	}
	for _, slug := range p.Tags {
		q.Add("tags", slug)
	}
	return q.Encode()
}

// Recipes fetches one page of recipes. Token may be empty; the backend then
// reports is_favorited as false throughout.
func (c *Client) Recipes(ctx context.Context, token string, params RecipeParams) (model.RecipeList, error) {
	var list model.RecipeList
	err := c.do(ctx, http.MethodGet, "/api/recipes/?"+params.query(), token, nil, &list)
	return list, err
}

// Recipe fetches a single recipe by id.
func (c *Client) Recipe(ctx context.Context, token string, id int64) (model.Recipe, error) {
	var r model.Recipe
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/recipes/%d/", id), token, nil, &r)
	return r, err
}

// IngredientAmount is one ingredient line in a create/update payload.
type IngredientAmount struct {
	ID     int64  `json:"id"`
	Amount string `json:"amount"`
}

// RecipeInput is the create/update payload. Image carries a base64 data URI
// and is omitted from the encoded payload when empty, so an update that did
// not replace the image never resends image data.
type RecipeInput struct {
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	CookingTime int64              `json:"cooking_time"`
	Image       string             `json:"image,omitempty"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []int64            `json:"tags"`
}

// CreateRecipe creates a recipe and returns the stored record.
func (c *Client) CreateRecipe(ctx context.Context, token string, input RecipeInput) (model.Recipe, error) {
	var r model.Recipe
	err := c.do(ctx, http.MethodPost, "/api/recipes/", token, input, &r)
	return r, err
}

// UpdateRecipe partially updates a recipe. Callers leave input.Image empty
// unless the user replaced the image.
func (c *Client) UpdateRecipe(ctx context.Context, token string, id int64, input RecipeInput) (model.Recipe, error) {
	var r model.Recipe
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/recipes/%d/", id), token, input, &r)
	return r, err
}

// DeleteRecipe removes a recipe.
func (c *Client) DeleteRecipe(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", id), token, nil, nil)
}

// AddFavorite marks the recipe as favorited for the token's user.
func (c *Client) AddFavorite(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite/", id), token, nil, nil)
}

// RemoveFavorite clears the favorite relation.
func (c *Client) RemoveFavorite(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/recipes/%d/favorite/", id), token, nil, nil)
}

// SearchIngredients looks up catalog ingredients by name prefix.
func (c *Client) SearchIngredients(ctx context.Context, name string) ([]model.Ingredient, error) {
	var out []model.Ingredient
	q := url.Values{"name": {name}}
	err := c.do(ctx, http.MethodGet, "/api/ingredients/?"+q.Encode(), "", nil, &out)
	return out, err
}

// Tags fetches the full tag catalog.
func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	err := c.do(ctx, http.MethodGet, "/api/tags/", "", nil, &out)
	return out, err
}

// do performs one request. An empty token sends the call unauthenticated.
// 204 resolves with no payload, any other status below 400 decodes the JSON
// body into out, and 400 and above decodes into an *Error.
func (c *Client) do(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
