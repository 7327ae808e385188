package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/tags"
)

// Templates are parsed from web/templates relative to the repo root.
func TestMain(m *testing.M) {
	if err := os.Chdir("../.."); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// toggleBackend accepts the favorite toggle for recipe 7 and rejects it for
// recipe 8.
func toggleBackend(t *testing.T) *httptest.Server {
	t.Helper()

	recipe := func(id int64) map[string]any {
		return map[string]any{
			"id": id, "name": "Pancakes", "image": "", "text": "Mix and fry.",
			"cooking_time": 20,
			"tags":         []map[string]any{{"id": 1, "name": "Breakfast", "slug": "breakfast"}},
			"ingredients":  []map[string]any{{"id": 3, "name": "flour", "measurement_unit": "g", "amount": 200}},
			"author":       map[string]any{"id": 1, "username": "ada", "first_name": "Ada", "last_name": "Lovelace"},
			"is_favorited": false,
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/recipes/7/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recipe(7))
	})
	mux.HandleFunc("GET /api/recipes/8/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(recipe(8))
	})
	mux.HandleFunc("POST /api/recipes/7/favorite/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/recipes/8/favorite/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"non_field_errors": []string{"Recipe is already favorited."}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newToggleHandler(t *testing.T) *RecipeHandler {
	t.Helper()
	client := api.NewClient(toggleBackend(t).URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecipeHandler(client, tags.NewService(client), logger)
}

func toggleRequest(id, view string) *http.Request {
	form := url.Values{"on": {"1"}}
	if view != "" {
		form.Set("view", view)
	}
	req := httptest.NewRequest("POST", "/partials/recipes/"+id+"/favorite", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("id", id)
	return req
}

func TestToggleFavoriteConfirmedFlipsFlag(t *testing.T) {
	h := newToggleHandler(t)

	rec := httptest.NewRecorder()
	h.ToggleFavorite(rec, toggleRequest("7", ""))

	body := rec.Body.String()
	if !strings.Contains(body, `class="favorite on"`) {
		t.Error("card should render the favorited state after the backend confirmed")
	}
	if strings.Contains(body, `class="error"`) {
		t.Errorf("no error expected, body: %s", body)
	}
}

func TestToggleFavoriteRejectedKeepsFlag(t *testing.T) {
	h := newToggleHandler(t)

	rec := httptest.NewRecorder()
	h.ToggleFavorite(rec, toggleRequest("8", ""))

	body := rec.Body.String()
	if strings.Contains(body, `class="favorite on"`) {
		t.Error("a rejected toggle must not change the rendered flag")
	}
	if !strings.Contains(body, "Recipe is already favorited.") {
		t.Errorf("backend rejection message missing, body: %s", body)
	}
}

func TestToggleFavoriteDetailRendersButtonPartial(t *testing.T) {
	h := newToggleHandler(t)

	rec := httptest.NewRecorder()
	h.ToggleFavorite(rec, toggleRequest("7", "detail"))

	body := rec.Body.String()
	if !strings.Contains(body, `class="favorite-area"`) {
		t.Error("detail toggle should render the button partial")
	}
	if strings.Contains(body, `class="recipe-card"`) {
		t.Error("detail toggle should not render a card")
	}
}
