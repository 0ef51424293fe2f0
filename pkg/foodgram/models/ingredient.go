package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Unit is an ingredient's measurement unit
type Unit string

const (
	UnitGram       Unit = "г"
	UnitKilogram   Unit = "кг"
	UnitMilliliter Unit = "мл"
	UnitLiter      Unit = "л"
	UnitTablespoon Unit = "ст. л."
	UnitTeaspoon   Unit = "ч. л."
	UnitPiece      Unit = "шт."
	UnitDrop       Unit = "капля"
	UnitChunk      Unit = "кусок"
	UnitJar        Unit = "банка"
	UnitPinch      Unit = "щепотка"
	UnitGlass      Unit = "стакан"
	UnitSprig      Unit = "веточка"
	UnitLoaf       Unit = "батон"
)

var units = []Unit{
	UnitGram, UnitKilogram, UnitMilliliter, UnitLiter,
	UnitTablespoon, UnitTeaspoon, UnitPiece, UnitDrop,
	UnitChunk, UnitJar, UnitPinch, UnitGlass, UnitSprig, UnitLoaf,
}

// Units returns every accepted measurement unit
func Units() []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// Valid reports whether u is a known measurement unit
func (u Unit) Valid() bool {
	for _, known := range units {
		if u == known {
			return true
		}
	}
	return false
}

// Ingredient is a catalog entry; (name, unit) pairs are unique
type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"type:varchar(256);not null;uniqueIndex:idx_ingredient_name_unit;index" json:"name"`
	MeasurementUnit Unit   `gorm:"type:varchar(16);not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	if !i.MeasurementUnit.Valid() {
		return fmt.Errorf("unknown measurement unit %q", i.MeasurementUnit)
	}
	return nil
}
