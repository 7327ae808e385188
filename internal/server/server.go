package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/handler"
	"github.com/dukerupert/bitesnap/internal/middleware"
	"github.com/dukerupert/bitesnap/internal/store"
	"github.com/dukerupert/bitesnap/internal/tags"
)

type Server struct {
	db           *sql.DB
	client       *api.Client
	sessionStore *store.SessionStore
	draftStore   *store.DraftStore
	tagService   *tags.Service
	authH        *handler.AuthHandler
	recipeH      *handler.RecipeHandler
	recipeFormH  *handler.RecipeFormHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, client *api.Client, logger *slog.Logger) *Server {
	sessionStore := store.NewSessionStore(db)
	draftStore := store.NewDraftStore(db)
	tagService := tags.NewService(client)

	return &Server{
		db:           db,
		client:       client,
		sessionStore: sessionStore,
		draftStore:   draftStore,
		tagService:   tagService,
		authH:        handler.NewAuthHandler(client, sessionStore, logger.With("component", "auth")),
		recipeH:      handler.NewRecipeHandler(client, tagService, logger.With("component", "recipe")),
		recipeFormH:  handler.NewRecipeFormHandler(client, tagService, draftStore, logger.With("component", "recipe_form")),
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	optionalAuth := middleware.OptionalAuth(s.sessionStore, s.client, s.logger.With("component", "session"))
	requireAuth := middleware.RequireAuth(s.sessionStore, s.client, s.logger.With("component", "session"))
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()

	// Public routes. List and detail resolve the session when present so
	// favorite flags render for signed-in users.
	mux.Handle("GET /recipes", optionalAuth(http.HandlerFunc(s.recipeH.ListPage)))
	mux.Handle("GET /recipes/{id}", optionalAuth(http.HandlerFunc(s.recipeH.DetailPage)))
	mux.Handle("GET /signin", optionalAuth(http.HandlerFunc(s.authH.SignInPage)))
	mux.Handle("POST /signin", s.rateLimited(s.authH.SignIn))
	mux.HandleFunc("GET /signup", s.authH.SignUpPage)
	mux.Handle("POST /signup", s.rateLimited(s.authH.SignUp))
	mux.HandleFunc("GET /reset-password", s.authH.ResetPasswordPage)
	mux.Handle("POST /reset-password", s.rateLimited(s.authH.ResetPassword))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	mux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, each behind its own gate. The create form shares a
	// prefix with the public detail pattern; the literal segment wins.
	mux.Handle("GET /recipes/create", protected(s.recipeFormH.CreatePage))
	mux.Handle("POST /recipes/create", protected(s.recipeFormH.CreateSubmit))
	mux.Handle("POST /logout", protected(s.authH.SignOut))
	mux.Handle("GET /change-password", protected(s.authH.ChangePasswordPage))
	mux.Handle("POST /change-password", protected(s.authH.ChangePassword))
	mux.Handle("GET /favorites", protected(s.recipeH.FavoritesPage))
	mux.Handle("GET /recipes/{id}/edit", protected(s.recipeFormH.EditPage))
	mux.Handle("POST /recipes/{id}/edit", protected(s.recipeFormH.EditSubmit))
	mux.Handle("POST /recipes/{id}/delete", protected(s.recipeH.Delete))

	// Partials (HTMX)
	mux.Handle("POST /partials/recipes/{id}/favorite", protected(s.recipeH.ToggleFavorite))
	mux.Handle("POST /partials/ingredients", protected(s.recipeFormH.DraftAdd))
	mux.Handle("DELETE /partials/ingredients/{id}", protected(s.recipeFormH.DraftRemove))
	mux.Handle("GET /partials/ingredients/search", protected(s.recipeFormH.IngredientSearch))

	// "/" and anything unknown land on the recipe list, signed in or not.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/recipes", http.StatusSeeOther)
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, 10, time.Minute, h)
}
