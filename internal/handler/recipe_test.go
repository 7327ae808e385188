package handler

import (
	"errors"
	"testing"

	"github.com/dukerupert/bitesnap/internal/api"
	"github.com/dukerupert/bitesnap/internal/model"
)

func TestListURL(t *testing.T) {
	tests := []struct {
		base  string
		page  int64
		slugs []string
		want  string
	}{
		{"/recipes", 1, nil, "/recipes"},
		{"/recipes", 2, nil, "/recipes?page=2"},
		{"/recipes", 1, []string{"breakfast"}, "/recipes?tags=breakfast"},
		{"/recipes", 3, []string{"breakfast", "dinner"}, "/recipes?page=3&tags=breakfast&tags=dinner"},
		{"/favorites", 1, nil, "/favorites"},
	}
	for _, tt := range tests {
		if got := listURL(tt.base, tt.page, tt.slugs); got != tt.want {
			t.Errorf("listURL(%q, %d, %v) = %q, want %q", tt.base, tt.page, tt.slugs, got, tt.want)
		}
	}
}

func TestTagLinksResetPage(t *testing.T) {
	catalog := model.NewTagList([]model.Tag{
		{ID: 1, Slug: "breakfast"},
		{ID: 2, Slug: "lunch"},
	}, false)
	catalog.Select([]string{"breakfast"})

	links := tagLinks("/recipes", catalog)
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2", len(links))
	}

	// Toggling the active tag drops it; toggling the other adds it. Neither
	// link may carry a page parameter.
	if links[0].URL != "/recipes" {
		t.Errorf("toggle active tag URL = %q, want /recipes", links[0].URL)
	}
	if links[1].URL != "/recipes?tags=breakfast&tags=lunch" {
		t.Errorf("toggle inactive tag URL = %q", links[1].URL)
	}

	// The catalog itself must be untouched by link building.
	if got := catalog.SelectedSlugs(); len(got) != 1 || got[0] != "breakfast" {
		t.Errorf("catalog selection changed: %v", got)
	}
}

func TestPageLinks(t *testing.T) {
	links := pageLinks("/recipes", 2, 7, []string{"dinner"})
	if len(links) != 7 {
		t.Fatalf("links = %d, want 7", len(links))
	}
	if !links[1].Current {
		t.Error("page 2 should be current")
	}
	if links[0].Current || links[2].Current {
		t.Error("only page 2 should be current")
	}
	if links[2].URL != "/recipes?page=3&tags=dinner" {
		t.Errorf("page 3 URL = %q", links[2].URL)
	}
	if links[0].URL != "/recipes?tags=dinner" {
		t.Errorf("page 1 URL = %q", links[0].URL)
	}

	if got := pageLinks("/recipes", 1, 1, nil); got != nil {
		t.Errorf("single page needs no controls, got %v", got)
	}
}

func TestSubmitError(t *testing.T) {
	apiErr := &api.Error{StatusCode: 400, Fields: map[string][]string{
		"email":    {"Enter a valid email address."},
		"password": {"This field may not be blank."},
	}}
	want := "Enter a valid email address., This field may not be blank."
	if got := submitError(apiErr); got != want {
		t.Errorf("submitError = %q, want %q", got, want)
	}

	if got := submitError(errors.New("dial tcp: refused")); got != "Could not reach the server. Please try again." {
		t.Errorf("network error message = %q", got)
	}
}

func TestFormSubmitErrorPriority(t *testing.T) {
	apiErr := &api.Error{StatusCode: 400, Fields: map[string][]string{
		"non_field_errors": {"Recipe with this name already exists."},
		"cooking_time":     {"Must be positive."},
	}}
	if got := formSubmitError(apiErr); got != "Recipe with this name already exists." {
		t.Errorf("formSubmitError = %q", got)
	}

	apiErr = &api.Error{StatusCode: 400, Fields: map[string][]string{
		"cooking_time": {"Must be positive."},
	}}
	if got := formSubmitError(apiErr); got != "Cooking time: Must be positive." {
		t.Errorf("formSubmitError = %q", got)
	}
}

func TestDraftAmounts(t *testing.T) {
	got := draftAmounts([]model.IngredientDraft{
		{ID: 10, IngredientID: 3, Name: "flour", Amount: "200"},
		{ID: 11, IngredientID: 5, Name: "milk", Amount: "1"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	// The payload carries the catalog ingredient id, not the draft row id.
	if got[0].ID != 3 || got[0].Amount != "200" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].ID != 5 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestEditFormKey(t *testing.T) {
	if got := editFormKey(42); got != "edit-42" {
		t.Errorf("editFormKey(42) = %q", got)
	}
}

func TestCapitalizeDraftError(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ingredient already selected", "Ingredient already selected."},
		{"Already capitalized", "Already capitalized."},
		{"502 bad gateway", "502 bad gateway."},
	}
	for _, tt := range tests {
		if got := capitalizeDraftError(errors.New(tt.in)); got != tt.want {
			t.Errorf("capitalizeDraftError(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
