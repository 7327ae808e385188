package model

// IngredientDraft is an ingredient line held in a recipe form before
// submission. IngredientID and Name must come from a search suggestion, never
// free text, so the backend can resolve the catalog entry.
type IngredientDraft struct {
	ID              int64
	IngredientID    int64
	Name            string
	MeasurementUnit string
	Amount          string
}
