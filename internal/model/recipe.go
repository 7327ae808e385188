package model

// Author is the embedded recipe author record.
type Author struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RecipeIngredient is an ingredient line within a recipe.
type RecipeIngredient struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int64  `json:"amount"`
}

// Ingredient is a catalog entry returned by the ingredient search.
type Ingredient struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// Recipe as returned by the backend. Image is a URL; IsFavorited reflects the
// relation for the requesting user and is always false for anonymous requests.
type Recipe struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Text        string             `json:"text"`
	CookingTime int64              `json:"cooking_time"`
	Tags        []Tag              `json:"tags"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Author      Author             `json:"author"`
	IsFavorited bool               `json:"is_favorited"`
}

// HasTag reports whether the recipe carries the tag with the given id.
func (r Recipe) HasTag(id int64) bool {
	for _, t := range r.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// PageLimit is the fixed page size for every recipe list view.
const PageLimit = 6

// RecipeList is one page of recipes plus the total match count, mirroring the
// backend's paginated wire shape.
type RecipeList struct {
	Count   int64    `json:"count"`
	Results []Recipe `json:"results"`
}

// SetFavorited patches the favorite flag of the recipe with the given id.
// Absent ids are a no-op; callers apply it only after the backend confirmed
// the change.
func (rl *RecipeList) SetFavorited(id int64, favorited bool) {
	for i := range rl.Results {
		if rl.Results[i].ID == id {
			rl.Results[i].IsFavorited = favorited
			return
		}
	}
}

// PageCount returns the number of pages needed for count items at the fixed
// page limit.
func (rl RecipeList) PageCount() int64 {
	return PageCount(rl.Count, PageLimit)
}

// PageCount returns ceil(count/limit), never less than zero.
func PageCount(count, limit int64) int64 {
	if count <= 0 || limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}
