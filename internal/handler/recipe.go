package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/auth"
	"github.com/dukerupert/bitesnap/internal/model"
	"github.com/dukerupert/bitesnap/internal/tags"
)

type RecipeHandler struct {
	client    *api.Client
	tags      *tags.Service
	templates *template.Template
	logger    *slog.Logger
}

func NewRecipeHandler(client *api.Client, tagSvc *tags.Service, logger *slog.Logger) *RecipeHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/*.html"))
	return &RecipeHandler{
		client:    client,
		tags:      tagSvc,
		templates: tmpl,
		logger:    logger,
	}
}

type tagLink struct {
	model.Tag
	URL string
}

type pageLink struct {
	Number  int64
	URL     string
	Current bool
}

type listView struct {
	Title         string
	User          *model.User
	Authenticated bool
	Recipes       []model.Recipe
	Count         int64
	Tags          []tagLink
	Pages         []pageLink
	Error         string
	CreateLink    bool
}

type cardView struct {
	Recipe        model.Recipe
	Authenticated bool
	Error         string
}

type detailView struct {
	Title         string
	User          *model.User
	Authenticated bool
	Recipe        model.Recipe
	IsAuthor      bool
	Error         string
}

// Cards adapts the page view for the shared recipe-card partial, which is
// also rendered standalone after a favorite toggle.
func (v listView) Cards() []cardView {
	cards := make([]cardView, len(v.Recipes))
	for i, recipe := range v.Recipes {
		cards[i] = cardView{Recipe: recipe, Authenticated: v.Authenticated}
	}
	return cards
}

// Card adapts the detail view for the favorite-button partial. The page-level
// error stays in the page banner, so it is not copied here.
func (v detailView) Card() cardView {
	return cardView{Recipe: v.Recipe, Authenticated: v.Authenticated}
}

func (h *RecipeHandler) render(w http.ResponseWriter, name string, data any) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
	}
}

// ListPage renders /recipes: one page of recipes filtered by the selected
// tag slugs in the query string.
func (h *RecipeHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, "/recipes", "Recipes", false)
}

// FavoritesPage renders /favorites: the same list restricted to the user's
// favorites. The route is protected, so a token is always present.
func (h *RecipeHandler) FavoritesPage(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, "/favorites", "Favorites", true)
}

func (h *RecipeHandler) listPage(w http.ResponseWriter, r *http.Request, base, title string, favoritesOnly bool) {
	ctx := r.Context()
	user := auth.CurrentUser(ctx)

	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	slugs := r.URL.Query()["tags"]

	view := listView{
		Title:         title,
		User:          user,
		Authenticated: user != nil,
		CreateLink:    user != nil && base == "/recipes",
	}

	catalog, err := h.tags.Selection(ctx, slugs)
	if err != nil {
		h.logger.Error("load tags", "error", err)
	} else {
		slugs = catalog.SelectedSlugs()
		view.Tags = tagLinks(base, catalog)
	}

	list, err := h.client.Recipes(ctx, auth.Token(ctx), api.RecipeParams{
		Page:        page,
		IsFavorited: favoritesOnly,
		Tags:        slugs,
	})
	if err != nil {
		// Keep whatever already rendered client-side; here that means an
		// empty list plus a banner.
		h.logger.Error("fetch recipes", "error", err)
		view.Error = "Recipes could not be loaded. Please try again."
		h.render(w, "recipes.html", view)
		return
	}

	view.Recipes = list.Results
	view.Count = list.Count
	view.Pages = pageLinks(base, page, list.PageCount(), slugs)
	h.render(w, "recipes.html", view)
}

// DetailPage renders /recipes/{id}.
func (h *RecipeHandler) DetailPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	recipe, err := h.client.Recipe(ctx, auth.Token(ctx), id)
	if err != nil {
		h.logger.Error("fetch recipe", "id", id, "error", err)
		http.NotFound(w, r)
		return
	}

	user := auth.CurrentUser(ctx)
	h.render(w, "recipe_detail.html", detailView{
		Title:         recipe.Name,
		User:          user,
		Authenticated: user != nil,
		Recipe:        recipe,
		IsAuthor:      user != nil && user.ID == recipe.Author.ID,
	})
}

// ToggleFavorite flips the favorite relation for one recipe. The backend is
// called first; the rendered flag changes only when that call succeeded, so
// the page never shows a favorite state the backend has not confirmed.
func (h *RecipeHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	on := r.FormValue("on") == "1"
	token := auth.Token(ctx)

	recipe, err := h.client.Recipe(ctx, token, id)
	if err != nil {
		h.logger.Error("fetch recipe", "id", id, "error", err)
		http.Error(w, "recipe not found", http.StatusNotFound)
		return
	}

	if on {
		err = h.client.AddFavorite(ctx, token, id)
	} else {
		err = h.client.RemoveFavorite(ctx, token, id)
	}

	list := model.RecipeList{Results: []model.Recipe{recipe}}
	var toggleErr string
	if err != nil {
		h.logger.Warn("favorite toggle rejected", "id", id, "on", on, "error", err)
		toggleErr = submitError(err)
	} else {
		list.SetFavorited(id, on)
	}
	updated := list.Results[0]

	if r.FormValue("view") == "detail" {
		h.render(w, "favorite-button", cardView{Recipe: updated, Authenticated: true, Error: toggleErr})
		return
	}
	h.render(w, "recipe-card", cardView{Recipe: updated, Authenticated: true, Error: toggleErr})
}

// Delete removes a recipe and navigates away from it.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.client.DeleteRecipe(ctx, auth.Token(ctx), id); err != nil {
		h.logger.Error("delete recipe", "id", id, "error", err)
		recipe, ferr := h.client.Recipe(ctx, auth.Token(ctx), id)
		if ferr != nil {
			http.Error(w, "failed to delete recipe", http.StatusInternalServerError)
			return
		}
		user := auth.CurrentUser(ctx)
		h.render(w, "recipe_detail.html", detailView{
			Title:         recipe.Name,
			User:          user,
			Authenticated: true,
			Recipe:        recipe,
			IsAuthor:      user != nil && user.ID == recipe.Author.ID,
			Error:         submitError(err),
		})
		return
	}

	http.Redirect(w, r, "/recipes", http.StatusSeeOther)
}

// listURL builds a list URL for the given page and tag filter.
func listURL(base string, page int64, slugs []string) string {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.FormatInt(page, 10))
	}
	for _, s := range slugs {
		q.Add("tags", s)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// tagLinks renders the filter bar: each link toggles its tag and resets the
// page to 1, so a filter change never lands on an out-of-range page.
func tagLinks(base string, catalog model.TagList) []tagLink {
	out := make([]tagLink, len(catalog))
	for i, t := range catalog {
		toggled := make(model.TagList, len(catalog))
		copy(toggled, catalog)
		toggled.Toggle(t.ID)
		out[i] = tagLink{Tag: t, URL: listURL(base, 1, toggled.SelectedSlugs())}
	}
	return out
}

// pageLinks renders the pagination controls, one link per page.
func pageLinks(base string, current, total int64, slugs []string) []pageLink {
	if total <= 1 {
		return nil
	}
	out := make([]pageLink, 0, total)
	for n := int64(1); n <= total; n++ {
		out = append(out, pageLink{
			Number:  n,
			URL:     listURL(base, n, slugs),
			Current: n == current,
		})
	}
	return out
}
