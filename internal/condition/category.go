// Package condition holds the structured condition model shared by the
// expression builder and parser: semantic categories, operators, date
// literals, typed values and the ordered condition list.
package condition

import (
	"strings"

	"github.com/matthewbaird/condexpr/internal/catalog"
)

// Category is the semantic category of a field. It decides which
// operators are legal and how values are rendered.
type Category string

const (
	CategoryString    Category = "STRING"
	CategoryPicklist  Category = "PICKLIST"
	CategoryBoolean   Category = "BOOLEAN"
	CategoryNumber    Category = "NUMBER"
	CategoryDate      Category = "DATE"
	CategoryDateTime  Category = "DATETIME"
	CategoryID        Category = "ID"
	CategoryReference Category = "REFERENCE"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryString, CategoryPicklist, CategoryBoolean, CategoryNumber,
	CategoryDate, CategoryDateTime, CategoryID, CategoryReference,
}

var categoryByType = map[catalog.DataType]Category{
	catalog.TypeString:        CategoryString,
	catalog.TypeTextArea:      CategoryString,
	catalog.TypeEmail:         CategoryString,
	catalog.TypePhone:         CategoryString,
	catalog.TypeURL:           CategoryString,
	catalog.TypePicklist:      CategoryPicklist,
	catalog.TypeMultiPicklist: CategoryPicklist,
	catalog.TypeBoolean:       CategoryBoolean,
	catalog.TypeInteger:       CategoryNumber,
	catalog.TypeDouble:        CategoryNumber,
	catalog.TypeCurrency:      CategoryNumber,
	catalog.TypePercent:       CategoryNumber,
	catalog.TypeDate:          CategoryDate,
	catalog.TypeDateTime:      CategoryDateTime,
	catalog.TypeID:            CategoryID,
	catalog.TypeReference:     CategoryReference,
}

// Classify maps a catalog data type to its semantic category. Unknown
// types are treated as STRING.
func Classify(dt catalog.DataType) Category {
	if c, ok := categoryByType[catalog.ParseDataType(string(dt))]; ok {
		return c
	}
	return CategoryString
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Textual reports whether values of the category are quoted strings that
// support LIKE matching.
func (c Category) Textual() bool {
	return c == CategoryString || c == CategoryID || c == CategoryReference
}

// Temporal reports whether the category takes date literal values.
func (c Category) Temporal() bool {
	return c == CategoryDate || c == CategoryDateTime
}
