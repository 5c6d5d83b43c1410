// Package catalog answers product listing queries and manages the product records.
package catalog

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/metrics"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/store"
)

const (
	PageSize     = 8
	TopLimit     = 4
	FeaturedSize = 8
)

// QueryParams is the raw query string of a listing request.
type QueryParams struct {
	Keyword    string `form:"keyword"`
	PageNumber string `form:"pageNumber"`
	Category   string `form:"category"`
	MinPrice   string `form:"minPrice"`
	MaxPrice   string `form:"maxPrice"`
}

type Query struct {
	Keyword  string
	Category models.Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
}

type Result struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Count    int64            `json:"count"`
}

// ParseQuery never fails: unparsable numbers are treated as absent and the
// page falls back to 1.
func ParseQuery(p QueryParams) Query {
	q := Query{
		Keyword:  strings.TrimSpace(p.Keyword),
		Category: models.Category(strings.TrimSpace(p.Category)),
		Page:     1,
	}

	if n, err := strconv.Atoi(strings.TrimSpace(p.PageNumber)); err == nil && n > 0 {
		q.Page = n
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(p.MinPrice)); err == nil {
		q.MinPrice = &d
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(p.MaxPrice)); err == nil {
		q.MaxPrice = &d
	}

	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Predicate builds the AND of every filter present in q.
func (q Query) Predicate() store.Predicate {
	var preds []store.Predicate

	if q.Keyword != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Keyword)) + "%"
		preds = append(preds, func(tx *gorm.DB) *gorm.DB {
			return tx.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
		})
	}

	if q.Category != "" {
		preds = append(preds, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("category = ?", q.Category)
		})
	}

	if q.MinPrice != nil {
		lo := *q.MinPrice
		preds = append(preds, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("price >= ?", lo)
		})
	}

	if q.MaxPrice != nil {
		hi := *q.MaxPrice
		preds = append(preds, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("price <= ?", hi)
		})
	}

	return store.And(preds...)
}

type Engine struct {
	products *store.Store[models.Product]
}

func NewEngine(conn *gorm.DB) *Engine {
	return &Engine{products: store.New[models.Product](conn)}
}

// Search returns one page of the filtered catalog. Pages is derived from a
// full count of the predicate, not from the returned slice.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	defer func() { metrics.CatalogQueryDuration.Observe(time.Since(start).Seconds()) }()

	if q.Page < 1 {
		q.Page = 1
	}
	pred := q.Predicate()

	count, err := e.products.Count(ctx, pred)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Products: []models.Product{},
		Page:     q.Page,
		Pages:    int(math.Ceil(float64(count) / PageSize)),
		Count:    count,
	}
	// pages past the end are empty; this also keeps the offset from overflowing
	if q.Page > res.Pages {
		return res, nil
	}

	products, err := e.products.FindMany(ctx, pred, store.Page{
		Limit: PageSize,
		Skip:  PageSize * (q.Page - 1),
	})
	if err != nil {
		return nil, err
	}
	if products != nil {
		res.Products = products
	}
	return res, nil
}

func (e *Engine) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := e.products.FindByID(ctx, id, "Reviews")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

func (e *Engine) TopRated(ctx context.Context) ([]models.Product, error) {
	return e.products.FindMany(ctx, nil, store.Page{Limit: TopLimit}, "rating desc", "id")
}

func (e *Engine) Featured(ctx context.Context) ([]models.Product, error) {
	featured := func(tx *gorm.DB) *gorm.DB { return tx.Where("is_featured = ?", true) }
	return e.products.FindMany(ctx, featured, store.Page{Limit: FeaturedSize})
}
