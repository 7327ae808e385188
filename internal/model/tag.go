package model

// Tag is a recipe category label. Selected is client-side only: it marks the
// tag as active in the current filter set or checked in a recipe form, and is
// never part of the backend representation.
type Tag struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Selected bool   `json:"-"`
}

// TagList is an ordered set of tags with selection flags.
type TagList []Tag

// NewTagList copies tags and applies the given selection to every element.
func NewTagList(tags []Tag, selected bool) TagList {
	out := make(TagList, len(tags))
	for i, t := range tags {
		t.Selected = selected
		out[i] = t
	}
	return out
}

// Toggle flips the selection flag of the tag with the given id, preserving
// order. Unknown ids are a no-op.
func (tl TagList) Toggle(id int64) {
	for i := range tl {
		if tl[i].ID == id {
			tl[i].Selected = !tl[i].Selected
			return
		}
	}
}

// Select sets the selection flag of every tag whose slug appears in slugs.
func (tl TagList) Select(slugs []string) {
	for i := range tl {
		tl[i].Selected = false
		for _, s := range slugs {
			if tl[i].Slug == s {
				tl[i].Selected = true
				break
			}
		}
	}
}

// SelectIDs sets the selection flag of every tag whose id appears in ids.
func (tl TagList) SelectIDs(ids []int64) {
	for i := range tl {
		tl[i].Selected = false
		for _, id := range ids {
			if tl[i].ID == id {
				tl[i].Selected = true
				break
			}
		}
	}
}

// SelectedSlugs returns the slugs of the selected tags, in order.
func (tl TagList) SelectedSlugs() []string {
	var out []string
	for _, t := range tl {
		if t.Selected {
			out = append(out, t.Slug)
		}
	}
	return out
}

// SelectedIDs returns the ids of the selected tags, in order.
func (tl TagList) SelectedIDs() []int64 {
	var out []int64
	for _, t := range tl {
		if t.Selected {
			out = append(out, t.ID)
		}
	}
	return out
}
