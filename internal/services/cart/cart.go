package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

// Lookup resolves catalog items by id.
type Lookup interface {
	Lookup(id int64) (models.CatalogItem, error)
}

// Line is one entry of the cart. Name and UnitPrice are copied from the
// catalog when the line is added.
type Line struct {
	ItemID        int64                `json:"item_id"`
	Name          string               `json:"name"`
	Category      models.Category      `json:"category"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	Quantity      int                  `json:"quantity"`
	Customization models.Customization `json:"customization"`
}

func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Draft is the customization being edited for a selected item.
type Draft struct {
	Item          models.CatalogItem   `json:"item"`
	Customization models.Customization `json:"customization"`
}

// Cart holds the in-progress order of one checkout session. It is not safe
// for concurrent use; the owning session serializes access.
type Cart struct {
	catalog Lookup
	lines   []Line
	draft   *Draft
}

func New(catalog Lookup) *Cart {
	return &Cart{catalog: catalog}
}

// SelectItem opens a draft for the item seeded with its category defaults.
// The cart itself is not changed.
func (c *Cart) SelectItem(itemID int64) (Draft, error) {
	item, err := c.catalog.Lookup(itemID)
	if err != nil {
		return Draft{}, models.NewValidationError("item_id", err.Error())
	}
	c.draft = &Draft{
		Item:          item,
		Customization: models.DefaultCustomization(item.Category),
	}
	return c.draftCopy(), nil
}

// Draft returns the open draft, if any.
func (c *Cart) Draft() (Draft, bool) {
	if c.draft == nil {
		return Draft{}, false
	}
	return c.draftCopy(), true
}

func (c *Cart) draftCopy() Draft {
	return Draft{Item: c.draft.Item, Customization: c.draft.Customization.Clone()}
}

func (c *Cart) CancelDraft() {
	c.draft = nil
}

// ConfirmAdd appends a line built from the selected item and the given
// customization, then clears the draft.
func (c *Cart) ConfirmAdd(custom models.Customization) (Line, error) {
	if c.draft == nil {
		return Line{}, models.NewValidationError("item_id", "no item selected")
	}
	item := c.draft.Item
	if err := custom.ValidateFor(item.Category); err != nil {
		return Line{}, err
	}

	line := Line{
		ItemID:        item.ID,
		Name:          item.Name,
		Category:      item.Category,
		UnitPrice:     item.Price,
		Quantity:      1,
		Customization: custom.Clone(),
	}
	c.lines = append(c.lines, line)
	c.draft = nil
	return line, nil
}

// RemoveLine deletes the line at index; later lines shift down.
func (c *Cart) RemoveLine(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// ChangeQuantity applies delta (+1 or -1). Quantity never drops below 1.
func (c *Cart) ChangeQuantity(index, delta int) error {
	if delta != 1 && delta != -1 {
		return models.NewValidationError("delta", fmt.Sprintf("delta must be +1 or -1, got %d", delta))
	}
	if err := c.checkIndex(index); err != nil {
		return err
	}
	q := c.lines[index].Quantity + delta
	if q < 1 {
		q = 1
	}
	c.lines[index].Quantity = q
	return nil
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.lines) {
		return models.NewValidationError("index", fmt.Sprintf("line %d does not exist", index))
	}
	return nil
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		l.Customization = l.Customization.Clone()
		out[i] = l
	}
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Reset drops every line and the draft.
func (c *Cart) Reset() {
	c.lines = nil
	c.draft = nil
}

// OrderLines renders the cart as the lines persisted with an order.
func (c *Cart) OrderLines() []models.OrderLine {
	out := make([]models.OrderLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = models.OrderLine{
			ItemID:      l.ItemID,
			Name:        l.Name,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal(),
			Description: l.Customization.Describe(),
			Note:        l.Customization.Note,
		}
	}
	return out
}
