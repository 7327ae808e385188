package handler

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/auth"
	"github.com/dukerupert/bitesnap/internal/form"
	"github.com/dukerupert/bitesnap/internal/images"
	"github.com/dukerupert/bitesnap/internal/model"
	"github.com/dukerupert/bitesnap/internal/store"
	"github.com/dukerupert/bitesnap/internal/tags"
)

var wholeNumberPattern = regexp.MustCompile(`^\d+$`)

// Error texts shared with the draft-level checks; kept as user-facing copy.
const (
	errFillAllFields = "Please fill in all fields!"
	errSelectTag     = "Please select at least one tag"
)

type RecipeFormHandler struct {
	client    *api.Client
	tags      *tags.Service
	drafts    *store.DraftStore
	templates *template.Template
	logger    *slog.Logger
}

func NewRecipeFormHandler(client *api.Client, tagSvc *tags.Service, drafts *store.DraftStore, logger *slog.Logger) *RecipeFormHandler {
	tmpl := template.Must(template.ParseGlob("web/templates/*.html"))
	return &RecipeFormHandler{
		client:    client,
		tags:      tagSvc,
		drafts:    drafts,
		templates: tmpl,
		logger:    logger,
	}
}

type formView struct {
	Title           string
	User            *model.User
	Authenticated   bool
	IsEdit          bool
	RecipeID        int64
	Action          string
	FormKey         string
	Form            *form.Form
	Tags            model.TagList
	Drafts          []model.IngredientDraft
	IngredientError string
	SubmitError     string
	ExistingImage   string
}

type ingredientEditorView struct {
	FormKey         string
	Drafts          []model.IngredientDraft
	IngredientError string
	Suggestions     []model.Ingredient
}

// Editor adapts the page view for the ingredient-editor partial, which is
// also rendered standalone after a draft add or remove.
func (v formView) Editor() ingredientEditorView {
	return ingredientEditorView{
		FormKey:         v.FormKey,
		Drafts:          v.Drafts,
		IngredientError: v.IngredientError,
	}
}

func (h *RecipeFormHandler) render(w http.ResponseWriter, name string, data any) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
	}
}

func recipeForm() *form.Form {
	return form.New(
		form.Field{Name: "name", Required: true},
		form.Field{Name: "text", Required: true},
		form.Field{
			Name:           "cooking_time",
			Required:       true,
			Pattern:        wholeNumberPattern,
			PatternMessage: "Cooking time must be a whole number of minutes.",
		},
	)
}

// CreatePage renders the empty create form. Every tag starts selected, the
// same default the backend's required-tags rule makes convenient.
func (h *RecipeFormHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac, _ := auth.FromContext(ctx)

	catalog, err := h.tags.All(ctx)
	if err != nil {
		h.logger.Error("load tags", "error", err)
	}
	drafts, err := h.drafts.List(ac.SessionID, "create")
	if err != nil {
		h.logger.Error("load drafts", "error", err)
	}

	h.render(w, "recipe_form.html", formView{
		Title:         "Create recipe",
		User:          ac.User,
		Authenticated: true,
		Action:        "/recipes/create",
		FormKey:       "create",
		Form:          recipeForm(),
		Tags:          model.NewTagList(catalog, true),
		Drafts:        drafts,
	})
}

// CreateSubmit validates and sends the new recipe.
func (h *RecipeFormHandler) CreateSubmit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, 0)
}

// EditPage loads the recipe into the form: tags first, then the recipe with
// its tag set merged into the selection flags, and the ingredient list
// seeded as drafts.
func (h *RecipeFormHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac, _ := auth.FromContext(ctx)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	catalog, err := h.tags.All(ctx)
	if err != nil {
		h.logger.Error("load tags", "error", err)
	}

	recipe, err := h.client.Recipe(ctx, ac.Token, id)
	if err != nil {
		h.logger.Error("fetch recipe", "id", id, "error", err)
		http.NotFound(w, r)
		return
	}

	tl := model.NewTagList(catalog, false)
	var recipeTagIDs []int64
	for _, t := range recipe.Tags {
		recipeTagIDs = append(recipeTagIDs, t.ID)
	}
	tl.SelectIDs(recipeTagIDs)

	formKey := editFormKey(id)
	seed := make([]model.IngredientDraft, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		seed = append(seed, model.IngredientDraft{
			IngredientID:    ing.ID,
			Name:            ing.Name,
			MeasurementUnit: ing.MeasurementUnit,
			Amount:          strconv.FormatInt(ing.Amount, 10),
		})
	}
	if err := h.drafts.Replace(ac.SessionID, formKey, seed); err != nil {
		h.logger.Error("seed drafts", "error", err)
	}
	drafts, err := h.drafts.List(ac.SessionID, formKey)
	if err != nil {
		h.logger.Error("load drafts", "error", err)
	}

	f := recipeForm()
	f.Set("name", recipe.Name)
	f.Set("text", recipe.Text)
	f.Set("cooking_time", strconv.FormatInt(recipe.CookingTime, 10))

	h.render(w, "recipe_form.html", formView{
		Title:         "Edit recipe",
		User:          ac.User,
		Authenticated: true,
		IsEdit:        true,
		RecipeID:      id,
		Action:        fmt.Sprintf("/recipes/%d/edit", id),
		FormKey:       formKey,
		Form:          f,
		Tags:          tl,
		Drafts:        drafts,
		ExistingImage: recipe.Image,
	})
}

// EditSubmit validates and sends the partial update.
func (h *RecipeFormHandler) EditSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.submit(w, r, id)
}

// submit handles both create (id == 0) and edit. The image is required on
// create; on edit an absent upload means the stored image is kept and the
// field is left out of the payload entirely.
func (h *RecipeFormHandler) submit(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	ac, _ := auth.FromContext(ctx)
	isEdit := id != 0

	if err := r.ParseMultipartForm(images.MaxUploadBytes + 1<<20); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	formKey := "create"
	action := "/recipes/create"
	title := "Create recipe"
	if isEdit {
		formKey = editFormKey(id)
		action = fmt.Sprintf("/recipes/%d/edit", id)
		title = "Edit recipe"
	}

	f := recipeForm()
	f.SetAll(r.FormValue)

	var tagIDs []int64
	for _, raw := range r.Form["tags"] {
		if tagID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			tagIDs = append(tagIDs, tagID)
		}
	}

	catalog, err := h.tags.All(ctx)
	if err != nil {
		h.logger.Error("load tags", "error", err)
	}
	tl := model.NewTagList(catalog, false)
	tl.SelectIDs(tagIDs)

	drafts, err := h.drafts.List(ac.SessionID, formKey)
	if err != nil {
		h.logger.Error("load drafts", "error", err)
	}

	view := formView{
		Title:         title,
		User:          ac.User,
		Authenticated: true,
		IsEdit:        isEdit,
		RecipeID:      id,
		Action:        action,
		FormKey:       formKey,
		Form:          f,
		Tags:          tl,
		Drafts:        drafts,
		ExistingImage: r.FormValue("existing_image"),
	}

	imageURI, imageErr := h.readImage(r)
	if imageErr != nil {
		view.SubmitError = imageErr.Error()
		h.render(w, "recipe_form.html", view)
		return
	}

	imageMissing := imageURI == "" && !isEdit
	if !f.Valid() || imageMissing || len(drafts) == 0 {
		view.SubmitError = errFillAllFields
		h.render(w, "recipe_form.html", view)
		return
	}
	if len(tagIDs) == 0 {
		view.SubmitError = errSelectTag
		h.render(w, "recipe_form.html", view)
		return
	}

	cookingTime, _ := strconv.ParseInt(f.Value("cooking_time"), 10, 64)
	input := api.RecipeInput{
		Name:        f.Value("name"),
		Text:        f.Value("text"),
		CookingTime: cookingTime,
		Image:       imageURI, // empty on edit without replacement: omitted
		Tags:        tagIDs,
		Ingredients: draftAmounts(drafts),
	}

	var recipe model.Recipe
	if isEdit {
		recipe, err = h.client.UpdateRecipe(ctx, ac.Token, id, input)
	} else {
		recipe, err = h.client.CreateRecipe(ctx, ac.Token, input)
	}
	if err != nil {
		view.SubmitError = formSubmitError(err)
		h.render(w, "recipe_form.html", view)
		return
	}

	if err := h.drafts.Clear(ac.SessionID, formKey); err != nil {
		h.logger.Error("clear drafts", "error", err)
	}
	http.Redirect(w, r, fmt.Sprintf("/recipes/%d", recipe.ID), http.StatusSeeOther)
}

// DraftAdd appends one ingredient draft and re-renders the editor partial.
// Draft-level failures stay in the partial and never block the page.
func (h *RecipeFormHandler) DraftAdd(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	formKey := r.FormValue("form_key")
	ingredientID, _ := strconv.ParseInt(r.FormValue("ingredient_id"), 10, 64)

	_, err := h.drafts.Add(ac.SessionID, formKey, model.IngredientDraft{
		IngredientID:    ingredientID,
		Name:            r.FormValue("ingredient_name"),
		MeasurementUnit: r.FormValue("measurement_unit"),
		Amount:          r.FormValue("amount"),
	})

	view := ingredientEditorView{FormKey: formKey}
	switch err {
	case nil:
	case store.ErrDraftAmountNotNumber, store.ErrDraftIncomplete, store.ErrDraftDuplicate:
		view.IngredientError = capitalizeDraftError(err)
	default:
		h.logger.Error("add draft", "error", err)
		view.IngredientError = "Could not add the ingredient. Please try again."
	}

	view.Drafts, err = h.drafts.List(ac.SessionID, formKey)
	if err != nil {
		h.logger.Error("load drafts", "error", err)
	}
	h.render(w, "ingredient-editor", view)
}

// DraftRemove deletes one draft line and re-renders the editor partial.
func (h *RecipeFormHandler) DraftRemove(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	formKey := r.URL.Query().Get("form_key")

	if err := h.drafts.Remove(ac.SessionID, formKey, id); err != nil {
		h.logger.Error("remove draft", "error", err)
	}

	drafts, err := h.drafts.List(ac.SessionID, formKey)
	if err != nil {
		h.logger.Error("load drafts", "error", err)
	}
	h.render(w, "ingredient-editor", ingredientEditorView{FormKey: formKey, Drafts: drafts})
}

// IngredientSearch renders the suggestion dropdown for the current input.
// One request per keystroke, no debouncing; the dropdown is advisory.
func (h *RecipeFormHandler) IngredientSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("ingredient_name")

	var suggestions []model.Ingredient
	if name != "" {
		var err error
		suggestions, err = h.client.SearchIngredients(r.Context(), name)
		if err != nil {
			h.logger.Warn("ingredient search", "error", err)
			suggestions = nil
		}
	}
	h.render(w, "ingredient-suggestions", ingredientEditorView{Suggestions: suggestions})
}

func editFormKey(id int64) string {
	return fmt.Sprintf("edit-%d", id)
}

func draftAmounts(drafts []model.IngredientDraft) []api.IngredientAmount {
	out := make([]api.IngredientAmount, len(drafts))
	for i, d := range drafts {
		out[i] = api.IngredientAmount{ID: d.IngredientID, Amount: d.Amount}
	}
	return out
}

// readImage reads an optional uploaded photo into a data URI. No file is
// not an error; a broken or oversized file is.
func (h *RecipeFormHandler) readImage(r *http.Request) (string, error) {
	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	uri, err := images.DataURI(file)
	if err != nil {
		return "", fmt.Errorf("the image could not be processed: %w", err)
	}
	return uri, nil
}

// formSubmitError maps a backend rejection to the recipe form banner using
// the priority order of the form error payloads.
func formSubmitError(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.FormMessage(); msg != "" {
			return msg
		}
		return "The server rejected the recipe. Please try again."
	}
	return "Could not reach the server. Please try again."
}

func capitalizeDraftError(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	first, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(first)) + msg[size:] + "."
}
