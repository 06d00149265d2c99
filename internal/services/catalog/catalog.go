package catalog

import (
	"context"
	"fmt"
	"sync"

	"cafe-pos/internal/models"
)

// Catalog is a read-only lookup table of purchasable items.
type Catalog struct {
	items []models.CatalogItem
	byID  map[int64]int
}

// New builds a catalog. Duplicate ids and negative prices are rejected.
func New(items []models.CatalogItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.CatalogItem, 0, len(items)),
		byID:  make(map[int64]int, len(items)),
	}
	for _, item := range items {
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog item id %d", item.ID)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("catalog item %d has negative price %s", item.ID, item.Price)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Lookup returns the item with id, or models.ErrNotFound.
func (c *Catalog) Lookup(id int64) (models.CatalogItem, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.CatalogItem{}, fmt.Errorf("catalog item %d: %w", id, models.ErrNotFound)
	}
	return c.items[i], nil
}

// Items returns a copy of every item in load order.
func (c *Catalog) Items() []models.CatalogItem {
	out := make([]models.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// Directory holds the staff members that can be selected as attendant.
type Directory struct {
	mu         sync.RWMutex
	attendants []models.Attendant
}

func NewDirectory(attendants []models.Attendant) *Directory {
	d := &Directory{}
	for _, a := range attendants {
		d.Append(a)
	}
	return d
}

// Append adds a staff member. An existing id is replaced.
func (d *Directory) Append(a models.Attendant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.attendants {
		if d.attendants[i].ID == a.ID {
			d.attendants[i] = a
			return
		}
	}
	d.attendants = append(d.attendants, a)
}

func (d *Directory) Lookup(id int64) (models.Attendant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.attendants {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Attendant{}, fmt.Errorf("attendant %d: %w", id, models.ErrNotFound)
}

func (d *Directory) List() []models.Attendant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Attendant, len(d.attendants))
	copy(out, d.attendants)
	return out
}

// Source reads products and staff from the system of record.
type Source interface {
	ListCatalog(ctx context.Context) ([]models.CatalogItem, error)
	ListAttendants(ctx context.Context) ([]models.Attendant, error)
}

// Load fetches both tables once at startup.
func Load(ctx context.Context, src Source) (*Catalog, *Directory, error) {
	items, err := src.ListCatalog(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	cat, err := New(items)
	if err != nil {
		return nil, nil, err
	}

	staff, err := src.ListAttendants(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load attendants: %w", err)
	}
	return cat, NewDirectory(staff), nil
}
