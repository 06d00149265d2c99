package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Category groups catalog items and decides which customization axes apply.
type Category string

const (
	CategoryHotCoffee  Category = "hot_coffee"
	CategoryColdCoffee Category = "cold_coffee"
	CategoryBlended    Category = "blended"
	CategoryTea        Category = "tea"
	CategoryBakery     Category = "bakery"
)

// IsBeverage reports whether items of the category carry beverage options.
func (c Category) IsBeverage() bool {
	switch c {
	case CategoryHotCoffee, CategoryColdCoffee, CategoryBlended, CategoryTea:
		return true
	default:
		return false
	}
}

// ParseCategory validates a stored category tag.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	switch c {
	case CategoryHotCoffee, CategoryColdCoffee, CategoryBlended, CategoryTea, CategoryBakery:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// CatalogItem is a purchasable product. Immutable once loaded.
type CatalogItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	NameEn   string          `json:"name_en,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Category Category        `json:"category"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Attendant is a staff member who can be recorded on an order.
type Attendant struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName is the name stored on receipts.
func (a Attendant) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Temperature string

const (
	TemperatureHot     Temperature = "hot"
	TemperatureIced    Temperature = "iced"
	TemperatureBlended Temperature = "blended"
)

func (t Temperature) Valid() bool {
	return t == TemperatureHot || t == TemperatureIced || t == TemperatureBlended
}

type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeLarge
}

type Sweetness string

const (
	SweetnessNone   Sweetness = "none"
	SweetnessLow    Sweetness = "low"
	SweetnessNormal Sweetness = "normal"
	SweetnessHigh   Sweetness = "high"
)

func (s Sweetness) Valid() bool {
	switch s {
	case SweetnessNone, SweetnessLow, SweetnessNormal, SweetnessHigh:
		return true
	default:
		return false
	}
}

func (s Sweetness) label() string {
	switch s {
	case SweetnessNone:
		return "no sugar"
	case SweetnessLow:
		return "less sweet"
	case SweetnessHigh:
		return "extra sweet"
	default:
		return "normal sweet"
	}
}

// MaxNoteLength bounds the free-text note in runes.
const MaxNoteLength = 140

// BeverageOptions is the customization payload of beverage categories.
type BeverageOptions struct {
	Temperature Temperature `json:"temperature"`
	Size        Size        `json:"size"`
	Sweetness   Sweetness   `json:"sweetness"`
}

func (b BeverageOptions) validate() error {
	if !b.Temperature.Valid() {
		return NewValidationError("customization.temperature", fmt.Sprintf("unsupported temperature %q", b.Temperature))
	}
	if !b.Size.Valid() {
		return NewValidationError("customization.size", fmt.Sprintf("unsupported size %q", b.Size))
	}
	if !b.Sweetness.Valid() {
		return NewValidationError("customization.sweetness", fmt.Sprintf("unsupported sweetness %q", b.Sweetness))
	}
	return nil
}

// Customization is attached by value to a cart line. Beverage is set for
// beverage categories and nil for everything else.
type Customization struct {
	Beverage *BeverageOptions `json:"beverage,omitempty"`
	Note     string           `json:"note,omitempty"`
}

// DefaultCustomization seeds a draft for an item of the given category.
func DefaultCustomization(c Category) Customization {
	if !c.IsBeverage() {
		return Customization{}
	}

	temperature := TemperatureHot
	switch c {
	case CategoryColdCoffee, CategoryTea:
		temperature = TemperatureIced
	case CategoryBlended:
		temperature = TemperatureBlended
	}

	return Customization{
		Beverage: &BeverageOptions{
			Temperature: temperature,
			Size:        SizeSmall,
			Sweetness:   SweetnessNormal,
		},
	}
}

// ValidateFor checks the customization shape against the item category.
func (c Customization) ValidateFor(category Category) error {
	if utf8.RuneCountInString(c.Note) > MaxNoteLength {
		return NewValidationError("customization.note", fmt.Sprintf("note must not exceed %d characters", MaxNoteLength))
	}

	switch {
	case category.IsBeverage():
		if c.Beverage == nil {
			return NewValidationError("customization.beverage", "beverage options are required")
		}
		return c.Beverage.validate()
	default:
		if c.Beverage != nil {
			return NewValidationError("customization.beverage", fmt.Sprintf("category %s has no beverage options", category))
		}
		return nil
	}
}

// Clone returns a copy that shares no memory with c.
func (c Customization) Clone() Customization {
	out := Customization{Note: c.Note}
	if c.Beverage != nil {
		b := *c.Beverage
		out.Beverage = &b
	}
	return out
}

// Describe renders the chosen axis values, e.g. "less sweet, large, iced".
func (c Customization) Describe() string {
	if c.Beverage == nil {
		return ""
	}
	return strings.Join([]string{
		c.Beverage.Sweetness.label(),
		string(c.Beverage.Size),
		string(c.Beverage.Temperature),
	}, ", ")
}
