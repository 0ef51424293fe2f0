// Package shoppinglist turns a user's shopping cart into a combined
// ingredient list.
package shoppinglist

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"
)

// Item is one ingredient line of one recipe in the cart
type Item struct {
	Name   string
	Unit   string
	Amount int
}

// Line is an aggregated shopping list entry
type Line struct {
	Name  string
	Unit  string
	Total int
}

type lineKey struct {
	name string
	unit string
}

// Aggregate sums amounts per (name, unit). Lines keep the order in which
// each pair was first seen.
func Aggregate(items []Item) []Line {
	index := make(map[lineKey]int, len(items))
	lines := make([]Line, 0, len(items))

	for _, item := range items {
		key := lineKey{name: item.Name, unit: item.Unit}
		if i, ok := index[key]; ok {
			lines[i].Total += item.Amount
			continue
		}
		index[key] = len(lines)
		lines = append(lines, Line{Name: item.Name, Unit: item.Unit, Total: item.Amount})
	}
	return lines
}

// Render writes one "name, total(unit)" line per entry
func Render(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintf(bw, "%s, %d(%s)\n", l.Name, l.Total, l.Unit); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Store loads cart contents
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Items returns the ingredient lines of every recipe in the user's cart,
// ordered by cart entry then by line
func (s *Store) Items(ctx context.Context, userID uint) ([]Item, error) {
	var items []Item
	err := s.db.WithContext(ctx).
		Table("shopping_list_entries").
		Select("ingredients.name AS name, ingredients.measurement_unit AS unit, recipe_ingredients.amount AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_list_entries.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_list_entries.author_id = ?", userID).
		Order("shopping_list_entries.id, recipe_ingredients.id").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load shopping cart: %w", err)
	}
	return items, nil
}
