package server

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
	"github.com/dukerupert/bitesnap/internal/database"
	"github.com/dukerupert/bitesnap/internal/middleware"
)

// Templates are parsed from web/templates relative to the repo root.
func TestMain(m *testing.M) {
	if err := os.Chdir("../.."); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const testToken = "tok-abc123"

// fakeBackend serves just enough of the recipe API to drive the router.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/token/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "ada@example.com" || creds.Password != "correct horse" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"non_field_errors": []string{"Unable to log in with provided credentials."}})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"auth_token": testToken})
	})
	mux.HandleFunc("GET /api/users/me/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid token."})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "email": "ada@example.com", "username": "ada",
			"first_name": "Ada", "last_name": "Lovelace",
		})
	})
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Breakfast", "slug": "breakfast"},
		})
	})
	mux.HandleFunc("GET /api/recipes/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"results": []map[string]any{{
				"id": 7, "name": "Pancakes", "image": "", "text": "Mix and fry.",
				"cooking_time": 20,
				"tags":         []map[string]any{{"id": 1, "name": "Breakfast", "slug": "breakfast"}},
				"ingredients":  []map[string]any{{"id": 3, "name": "flour", "measurement_unit": "g", "amount": 200}},
				"author":       map[string]any{"id": 1, "username": "ada", "first_name": "Ada", "last_name": "Lovelace"},
				"is_favorited": false,
			}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	backend := fakeBackend(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, api.NewClient(backend.URL), logger)
}

func TestPublicRecipeList(t *testing.T) {
	router := newTestServer(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/recipes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Pancakes") {
		t.Error("recipe name missing from list page")
	}
	if !strings.Contains(body, "Breakfast") {
		t.Error("tag filter missing from list page")
	}
	if strings.Contains(body, "/favorites") {
		t.Error("anonymous page should not link to favorites")
	}
}

func TestProtectedRoutesRedirectToSignIn(t *testing.T) {
	router := newTestServer(t).Router()

	for _, path := range []string{"/favorites", "/recipes/create", "/change-password"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

		if rec.Code != http.StatusSeeOther {
			t.Errorf("GET %s status = %d, want 303", path, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != "/signin" {
			t.Errorf("GET %s redirects to %q, want /signin", path, loc)
		}
	}
}

func TestRootAndUnknownPathsRedirectToRecipes(t *testing.T) {
	router := newTestServer(t).Router()

	// The fallback redirect is not gated: anonymous visitors land on the
	// public recipe list, not the sign-in page.
	for _, path := range []string{"/", "/no-such-page"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

		if rec.Code != http.StatusSeeOther {
			t.Errorf("GET %s status = %d, want 303", path, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != "/recipes" {
			t.Errorf("GET %s redirects to %q, want /recipes", path, loc)
		}
	}
}

func TestProtectedPartialGetsHXRedirect(t *testing.T) {
	router := newTestServer(t).Router()

	req := httptest.NewRequest("POST", "/partials/recipes/7/favorite", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); hx != "/signin" {
		t.Errorf("HX-Redirect = %q, want /signin", hx)
	}
}

func TestSignInFlow(t *testing.T) {
	router := newTestServer(t).Router()

	form := url.Values{"email": {"ada@example.com"}, "password": {"correct horse"}}
	req := httptest.NewRequest("POST", "/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("sign in status = %d, want 303: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/recipes" {
		t.Errorf("redirect = %q, want /recipes", loc)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("no session cookie set")
	}

	// The cookie now opens protected pages.
	req = httptest.NewRequest("GET", "/favorites", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("favorites status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ada") {
		t.Error("signed-in page should show the username")
	}
}

func TestSignInRejected(t *testing.T) {
	router := newTestServer(t).Router()

	form := url.Values{"email": {"ada@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with error", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unable to log in with provided credentials.") {
		t.Error("backend rejection message missing from page")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("rejected sign-in must not set a cookie")
	}
}

func TestCreateFormNotShadowedByDetail(t *testing.T) {
	router := newTestServer(t).Router()

	// /recipes/create must hit the create form gate, not parse "create"
	// as a recipe id.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/recipes/create", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 to sign in", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/signin" {
		t.Errorf("redirect = %q, want /signin", loc)
	}
}

func TestHealth(t *testing.T) {
	router := newTestServer(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
