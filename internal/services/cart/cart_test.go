package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/models"
	"cafe-pos/internal/services/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]models.CatalogItem{
		{ID: 1, Name: "Americano", Price: decimal.NewFromInt(40), Category: models.CategoryHotCoffee},
		{ID: 4, Name: "Mocha", Price: decimal.RequireFromString("45.50"), Category: models.CategoryColdCoffee},
		{ID: 8, Name: "Croissant", Price: decimal.NewFromInt(35), Category: models.CategoryBakery},
	})
	require.NoError(t, err)
	return cat
}

func addItem(t *testing.T, c *Cart, id int64) {
	t.Helper()
	d, err := c.SelectItem(id)
	require.NoError(t, err)
	_, err = c.ConfirmAdd(d.Customization)
	require.NoError(t, err)
}

func TestSelectItemSeedsDefaultsWithoutMutatingCart(t *testing.T) {
	c := New(testCatalog(t))

	d, err := c.SelectItem(4)
	require.NoError(t, err)
	assert.Equal(t, models.TemperatureIced, d.Customization.Beverage.Temperature)
	assert.Equal(t, models.SizeSmall, d.Customization.Beverage.Size)
	assert.Equal(t, models.SweetnessNormal, d.Customization.Beverage.Sweetness)
	assert.True(t, c.IsEmpty())

	_, err = c.SelectItem(99)
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestConfirmAddRequiresSelection(t *testing.T) {
	c := New(testCatalog(t))

	_, err := c.ConfirmAdd(models.Customization{})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, c.IsEmpty())
}

func TestConfirmAddCopiesPriceAndCustomization(t *testing.T) {
	c := New(testCatalog(t))

	d, err := c.SelectItem(1)
	require.NoError(t, err)
	custom := d.Customization
	custom.Beverage.Size = models.SizeLarge
	custom.Note = "extra hot"

	line, err := c.ConfirmAdd(custom)
	require.NoError(t, err)
	custom.Beverage.Size = models.SizeSmall

	assert.Equal(t, models.SizeLarge, c.Lines()[0].Customization.Beverage.Size)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(40)))
	_, open := c.Draft()
	assert.False(t, open)
}

func TestConfirmAddValidatesCategoryShape(t *testing.T) {
	c := New(testCatalog(t))

	_, err := c.SelectItem(8)
	require.NoError(t, err)
	_, err = c.ConfirmAdd(models.DefaultCustomization(models.CategoryHotCoffee))
	require.Error(t, err)

	_, open := c.Draft()
	assert.True(t, open, "draft stays open after a rejected confirm")
}

func TestRemoveLineShiftsIndices(t *testing.T) {
	c := New(testCatalog(t))
	addItem(t, c, 1)
	addItem(t, c, 4)
	addItem(t, c, 8)

	require.NoError(t, c.RemoveLine(0))
	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Mocha", lines[0].Name)
	assert.Equal(t, "Croissant", lines[1].Name)

	require.Error(t, c.RemoveLine(2))
	require.NoError(t, c.RemoveLine(1))
	require.NoError(t, c.RemoveLine(0))
	assert.True(t, c.IsEmpty())
}

func TestChangeQuantityClampsAtOne(t *testing.T) {
	c := New(testCatalog(t))
	addItem(t, c, 1)

	require.NoError(t, c.ChangeQuantity(0, -1))
	require.NoError(t, c.ChangeQuantity(0, -1))
	assert.Equal(t, 1, c.Lines()[0].Quantity)

	require.NoError(t, c.ChangeQuantity(0, 1))
	assert.Equal(t, 2, c.Lines()[0].Quantity)

	require.Error(t, c.ChangeQuantity(0, 3))
	require.Error(t, c.ChangeQuantity(5, 1))
}

func TestTotalMatchesRecomputationForRandomOperations(t *testing.T) {
	c := New(testCatalog(t))
	rng := rand.New(rand.NewSource(7))
	ids := []int64{1, 4, 8}

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || c.IsEmpty():
			addItem(t, c, ids[rng.Intn(len(ids))])
		case op == 1:
			require.NoError(t, c.RemoveLine(rng.Intn(c.Len())))
		default:
			delta := 1
			if rng.Intn(2) == 0 {
				delta = -1
			}
			require.NoError(t, c.ChangeQuantity(rng.Intn(c.Len()), delta))
		}

		want := decimal.Zero
		for _, l := range c.Lines() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		require.True(t, want.Equal(c.Total()), "step %d: total %s, want %s", step, c.Total(), want)
	}
}

func TestOrderLinesRenderDescription(t *testing.T) {
	c := New(testCatalog(t))
	addItem(t, c, 1)
	addItem(t, c, 8)
	require.NoError(t, c.ChangeQuantity(0, 1))

	lines := c.OrderLines()
	assert.Equal(t, "normal sweet, small, hot", lines[0].Description)
	assert.True(t, lines[0].LineTotal.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "", lines[1].Description)
	assert.True(t, models.SumLineTotals(lines).Equal(c.Total()))
}

func TestReset(t *testing.T) {
	c := New(testCatalog(t))
	addItem(t, c, 1)
	_, err := c.SelectItem(4)
	require.NoError(t, err)

	c.Reset()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	_, open := c.Draft()
	assert.False(t, open)
}
