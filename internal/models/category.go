package models

import "strings"

// Category is the fixed product category set of the dairy catalog.
type Category string

const (
	CategoryMilk   Category = "milk"
	CategoryCheese Category = "cheese"
	CategoryButter Category = "butter"
	CategoryCurd   Category = "curd"
	CategoryYogurt Category = "yogurt"
	CategoryPaneer Category = "paneer"
	CategoryGhee   Category = "ghee"
	CategoryOther  Category = "other"
)

var Categories = []Category{
	CategoryMilk,
	CategoryCheese,
	CategoryButter,
	CategoryCurd,
	CategoryYogurt,
	CategoryPaneer,
	CategoryGhee,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalises user input; ok is false for unknown categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}
