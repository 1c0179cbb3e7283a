package plans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	list := c.List()
	require.Len(t, list, 4)
	assert.Equal(t, "Basic Plan", list[0].Name)
	assert.Equal(t, "Platinum Plan", list[3].Name)

	gold, err := c.Get(3)
	require.NoError(t, err)
	assert.True(t, gold.Price.Equal(decimal.NewFromInt(10000)))
	assert.True(t, gold.DailyIncome.Equal(decimal.NewFromInt(500)))
	assert.True(t, gold.TotalReturn.Equal(decimal.NewFromInt(12000)))
	assert.Equal(t, 24, gold.DurationDays)

	_, err = c.Get(99)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewCatalogValidates(t *testing.T) {
	good := Plan{ID: 1, Name: "a", Price: decimal.NewFromInt(1), DailyIncome: decimal.NewFromInt(1), TotalReturn: decimal.NewFromInt(2), DurationDays: 2}

	_, err := NewCatalog(good, good)
	assert.Error(t, err, "duplicate id")

	bad := good
	bad.ID, bad.Price = 2, decimal.Zero
	_, err = NewCatalog(good, bad)
	assert.Error(t, err)

	bad = good
	bad.ID, bad.DurationDays = 3, 0
	_, err = NewCatalog(bad)
	assert.Error(t, err)
}

func TestListIsSortedCopy(t *testing.T) {
	c, err := NewCatalog(
		plan(7, "Seven", 10, 1, 12),
		plan(2, "Two", 10, 1, 12),
	)
	require.NoError(t, err)

	list := c.List()
	assert.Equal(t, []int{2, 7}, []int{list[0].ID, list[1].ID})

	list[0].Name = "changed"
	p, _ := c.Get(2)
	assert.Equal(t, "Two", p.Name)
}
