package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukerupert/bitesnap/internal/model"
)

var wholeNumber = regexp.MustCompile(`^\d+$`)

// Draft-level validation failures. These block the add without touching the
// stored list and render next to the ingredient input, not the submit button.
var (
	ErrDraftAmountNotNumber = fmt.Errorf("ingredient amount must be a whole number")
	ErrDraftIncomplete      = fmt.Errorf("ingredient not selected")
	ErrDraftDuplicate       = fmt.Errorf("ingredient already selected")
)

// DraftStore keeps the ingredient lines of an in-progress recipe form, keyed
// by session and form ("create" or "edit-{id}"), so the list survives the
// round trips of a server-rendered form.
type DraftStore struct {
	db *sql.DB
}

func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: db}
}

// Add validates and appends one draft. The ingredient must be
// backend-resolved (id and name present), the amount non-empty and a whole
// number, and the name unique within the list.
func (s *DraftStore) Add(sessionID, formKey string, d model.IngredientDraft) (*model.IngredientDraft, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Amount = strings.TrimSpace(d.Amount)

	if d.Amount != "" && !wholeNumber.MatchString(d.Amount) {
		return nil, ErrDraftAmountNotNumber
	}
	if d.Amount == "" || d.Name == "" || d.IngredientID == 0 {
		return nil, ErrDraftIncomplete
	}

	exists, err := s.nameExists(sessionID, formKey, d.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDraftDuplicate
	}

	res, err := s.db.Exec(
		`INSERT INTO ingredient_drafts (session_id, form_key, ingredient_id, name, measurement_unit, amount)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, formKey, d.IngredientID, d.Name, d.MeasurementUnit, d.Amount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &d, nil
}

// List returns the drafts of one form in insertion order.
func (s *DraftStore) List(sessionID, formKey string) ([]model.IngredientDraft, error) {
	rows, err := s.db.Query(
		`SELECT id, ingredient_id, name, measurement_unit, amount
		 FROM ingredient_drafts WHERE session_id = ? AND form_key = ? ORDER BY id`,
		sessionID, formKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []model.IngredientDraft
	for rows.Next() {
		var d model.IngredientDraft
		if err := rows.Scan(&d.ID, &d.IngredientID, &d.Name, &d.MeasurementUnit, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Remove deletes one draft line from a form.
func (s *DraftStore) Remove(sessionID, formKey string, id int64) error {
	_, err := s.db.Exec(
		`DELETE FROM ingredient_drafts WHERE id = ? AND session_id = ? AND form_key = ?`,
		id, sessionID, formKey,
	)
	if err != nil {
		return fmt.Errorf("remove draft: %w", err)
	}
	return nil
}

// Clear drops every draft of a form, typically after a successful submit.
func (s *DraftStore) Clear(sessionID, formKey string) error {
	_, err := s.db.Exec(
		`DELETE FROM ingredient_drafts WHERE session_id = ? AND form_key = ?`,
		sessionID, formKey,
	)
	if err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	return nil
}

// Replace seeds a form with the given drafts, dropping whatever was there.
// Used when the edit form loads an existing recipe.
func (s *DraftStore) Replace(sessionID, formKey string, drafts []model.IngredientDraft) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM ingredient_drafts WHERE session_id = ? AND form_key = ?`,
		sessionID, formKey,
	); err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	for _, d := range drafts {
		if _, err := tx.Exec(
			`INSERT INTO ingredient_drafts (session_id, form_key, ingredient_id, name, measurement_unit, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, formKey, d.IngredientID, d.Name, d.MeasurementUnit, d.Amount,
		); err != nil {
			return fmt.Errorf("seed draft %q: %w", d.Name, err)
		}
	}
	return tx.Commit()
}

func (s *DraftStore) nameExists(sessionID, formKey, name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM ingredient_drafts WHERE session_id = ? AND form_key = ? AND name = ?`,
		sessionID, formKey, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check draft name: %w", err)
	}
	return n > 0, nil
}
