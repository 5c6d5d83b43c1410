package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

type CategoryStat struct {
	Category     models.Category `json:"category"`
	Count        int64           `json:"count"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

// Categories lists every known category in display order, including the
// empty ones.
func (e *Engine) Categories(ctx context.Context) ([]CategoryStat, error) {
	var rows []struct {
		Category     models.Category
		Count        int64
		AveragePrice float64
	}
	err := e.products.DB().WithContext(ctx).
		Model(&models.Product{}).
		Select("category, COUNT(*) AS count, COALESCE(AVG(price), 0) AS average_price").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Dependency(err, "failed to aggregate categories")
	}

	byCategory := make(map[models.Category]CategoryStat, len(rows))
	for _, r := range rows {
		byCategory[r.Category] = CategoryStat{
			Category:     r.Category,
			Count:        r.Count,
			AveragePrice: decimal.NewFromFloat(r.AveragePrice).Round(2),
		}
	}

	out := make([]CategoryStat, 0, len(models.Categories))
	for _, c := range models.Categories {
		stat, ok := byCategory[c]
		if !ok {
			stat = CategoryStat{Category: c, AveragePrice: decimal.Zero}
		}
		out = append(out, stat)
	}
	return out, nil
}

// AveragePrice is the mean price of one category; zero when it is empty.
func (e *Engine) AveragePrice(ctx context.Context, c models.Category) (decimal.Decimal, error) {
	if !c.Valid() {
		return decimal.Zero, apperr.Validation("unknown category %q", c)
	}

	var avg float64
	err := e.products.DB().WithContext(ctx).
		Model(&models.Product{}).
		Where("category = ?", c).
		Select("COALESCE(AVG(price), 0)").
		Scan(&avg).Error
	if err != nil {
		return decimal.Zero, apperr.Dependency(err, "failed to compute average price")
	}
	return decimal.NewFromFloat(avg).Round(2), nil
}
