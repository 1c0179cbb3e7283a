// Package plans: каталог инвестиционных планов.
// Каталог: это конфигурация: он не меняется во время работы,
// а купленные планы хранят копию параметров.
package plans

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
)

// Plan: предложение с фиксированной доходностью.
type Plan struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DailyIncome  decimal.Decimal `json:"dailyIncome"`
	TotalReturn  decimal.Decimal `json:"totalReturn"`
	DurationDays int             `json:"duration"`
}

// Catalog: неизменяемый набор планов.
type Catalog struct {
	byID  map[int]Plan
	order []int
}

// NewCatalog проверяет планы и строит каталог.
func NewCatalog(items ...Plan) (*Catalog, error) {
	c := &Catalog{byID: make(map[int]Plan, len(items))}
	for _, p := range items {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("план %d задан дважды", p.ID)
		}
		if !p.Price.IsPositive() || !p.DailyIncome.IsPositive() || !p.TotalReturn.IsPositive() {
			return nil, fmt.Errorf("план %d (%s): суммы должны быть положительными", p.ID, p.Name)
		}
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("план %d (%s): срок должен быть > 0", p.ID, p.Name)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	sort.Ints(c.order)
	return c, nil
}

// Default: стандартные планы платформы.
func Default() *Catalog {
	c, err := NewCatalog(
		plan(1, "Basic Plan", 1000, 50, 1200),
		plan(2, "Silver Plan", 5000, 250, 6000),
		plan(3, "Gold Plan", 10000, 500, 12000),
		plan(4, "Platinum Plan", 25000, 1250, 30000),
	)
	if err != nil {
		panic(err)
	}
	return c
}

func plan(id int, name string, price, daily, total int64) Plan {
	return Plan{
		ID:           id,
		Name:         name,
		Price:        decimal.NewFromInt(price),
		DailyIncome:  decimal.NewFromInt(daily),
		TotalReturn:  decimal.NewFromInt(total),
		DurationDays: 24,
	}
}

// Get возвращает план по ID или common.ErrNotFound.
func (c *Catalog) Get(id int) (Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return Plan{}, fmt.Errorf("plan %d: %w", id, common.ErrNotFound)
	}
	return p, nil
}

// List возвращает планы по возрастанию ID.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
