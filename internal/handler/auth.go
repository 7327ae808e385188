package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/auth"
	"github.com/dukerupert/bitesnap/internal/form"
	"github.com/dukerupert/bitesnap/internal/middleware"
	"github.com/dukerupert/bitesnap/internal/model"
	"github.com/dukerupert/bitesnap/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type AuthHandler struct {
	client    *api.Client
	sessions  *store.SessionStore
	templates *template.Template
	logger    *slog.Logger
}

func NewAuthHandler(client *api.Client, sessions *store.SessionStore, logger *slog.Logger) *AuthHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/*.html"))
	return &AuthHandler{
		client:    client,
		sessions:  sessions,
		templates: tmpl,
		logger:    logger,
	}
}

func signInForm() *form.Form {
	return form.New(
		form.Field{Name: "email", Required: true, Pattern: emailPattern, PatternMessage: "Please enter an email address."},
		form.Field{Name: "password", Required: true},
	)
}

type authView struct {
	Title         string
	User          *model.User
	Authenticated bool
	Form          *form.Form
	SubmitError   string
}

func (h *AuthHandler) render(w http.ResponseWriter, name string, data authView) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
	}
}

func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/recipes", http.StatusSeeOther)
		return
	}
	h.render(w, "auth_signin.html", authView{Title: "Sign in", Form: signInForm()})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	f := signInForm()
	f.SetAll(r.FormValue)
	if !f.Valid() {
		h.render(w, "auth_signin.html", authView{Title: "Sign in", Form: f})
		return
	}

	token, err := h.client.SignIn(r.Context(), f.Value("email"), f.Value("password"))
	if err != nil {
		h.render(w, "auth_signin.html", authView{
			Title:       "Sign in",
			Form:        f,
			SubmitError: submitError(err),
		})
		return
	}

	// Token in hand; confirm it and load the account before the session
	// counts as authenticated.
	user, err := h.client.CurrentUser(r.Context(), token)
	if err != nil {
		h.logger.Warn("user fetch after sign-in failed", "error", err)
		h.render(w, "auth_signin.html", authView{
			Title:       "Sign in",
			Form:        f,
			SubmitError: "Signed in, but your account could not be loaded. Please try again.",
		})
		return
	}

	sess, err := h.sessions.Create(token, &user)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, sess.ID)
	http.Redirect(w, r, "/recipes", http.StatusSeeOther)
}

func signUpForm() *form.Form {
	return form.New(
		form.Field{Name: "email", Required: true, Pattern: emailPattern, PatternMessage: "Please enter an email address."},
		form.Field{Name: "username", Required: true},
		form.Field{Name: "first_name", Required: true},
		form.Field{Name: "last_name", Required: true},
		form.Field{Name: "password", Required: true, MinLength: 8},
	)
}

func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "auth_signup.html", authView{Title: "Sign up", Form: signUpForm()})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	f := signUpForm()
	f.SetAll(r.FormValue)
	if !f.Valid() {
		h.render(w, "auth_signup.html", authView{Title: "Sign up", Form: f})
		return
	}

	err := h.client.SignUp(r.Context(), api.SignUpRequest{
		Email:     f.Value("email"),
		Username:  f.Value("username"),
		FirstName: f.Value("first_name"),
		LastName:  f.Value("last_name"),
		Password:  f.Value("password"),
	})
	if err != nil {
		h.render(w, "auth_signup.html", authView{
			Title:       "Sign up",
			Form:        f,
			SubmitError: submitError(err),
		})
		return
	}

	// Registration does not authenticate; the user signs in next.
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// SignOut always clears the local session, whatever the backend says about
// the token revocation.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if err := h.client.SignOut(r.Context(), ac.Token); err != nil {
		h.logger.Warn("backend sign-out failed", "error", err)
	}
	if err := h.sessions.Delete(ac.SessionID); err != nil {
		h.logger.Error("delete session", "error", err)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

func resetForm() *form.Form {
	return form.New(
		form.Field{Name: "email", Required: true, Pattern: emailPattern, PatternMessage: "Please enter an email address."},
	)
}

func (h *AuthHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "auth_reset_password.html", authView{Title: "Reset password", Form: resetForm()})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	f := resetForm()
	f.SetAll(r.FormValue)
	if !f.Valid() {
		h.render(w, "auth_reset_password.html", authView{Title: "Reset password", Form: f})
		return
	}

	if err := h.client.ResetPassword(r.Context(), f.Value("email")); err != nil {
		h.render(w, "auth_reset_password.html", authView{
			Title:       "Reset password",
			Form:        f,
			SubmitError: submitError(err),
		})
		return
	}

	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

func changePasswordForm() *form.Form {
	return form.New(
		form.Field{Name: "current_password", Required: true},
		form.Field{Name: "new_password", Required: true, MinLength: 8},
		form.Field{Name: "repeat_password", Required: true, MinLength: 8},
	)
}

func (h *AuthHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "auth_change_password.html", authView{
		Title:         "Change password",
		User:          auth.CurrentUser(r.Context()),
		Authenticated: true,
		Form:          changePasswordForm(),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	user := auth.CurrentUser(r.Context())
	f := changePasswordForm()
	f.SetAll(r.FormValue)
	if f.Value("new_password") != f.Value("repeat_password") {
		f.SetError("repeat_password", "Passwords do not match.")
	}
	if !f.Valid() {
		h.render(w, "auth_change_password.html", authView{Title: "Change password", User: user, Authenticated: true, Form: f})
		return
	}

	ac, _ := auth.FromContext(r.Context())
	err := h.client.ChangePassword(r.Context(), ac.Token, f.Value("current_password"), f.Value("new_password"))
	if err != nil {
		h.render(w, "auth_change_password.html", authView{
			Title:         "Change password",
			User:          user,
			Authenticated: true,
			Form:          f,
			SubmitError:   submitError(err),
		})
		return
	}

	// The old token stays valid on the backend, but locally the change ends
	// the session and the user signs back in with the new password.
	if err := h.sessions.Delete(ac.SessionID); err != nil {
		h.logger.Error("delete session", "error", err)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// submitError maps a backend rejection to the single line shown above a
// form: every message in the payload joined with ", ".
func submitError(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
		return "The server rejected the request. Please try again."
	}
	return "Could not reach the server. Please try again."
}
