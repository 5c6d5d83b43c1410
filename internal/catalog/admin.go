package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

// ProductInput carries admin edits. On update, nil pointers and empty
// strings keep the stored value.
type ProductInput struct {
	Name         string           `json:"name"`
	Brand        string           `json:"brand"`
	Category     string           `json:"category" binding:"omitempty,category"`
	Price        *decimal.Decimal `json:"price"`
	CountInStock *int             `json:"countInStock" binding:"omitempty,min=0"`
	Description  string           `json:"description"`
	Image        string           `json:"image"`
	IsFeatured   *bool            `json:"isFeatured"`
}

// editableColumns are the product columns an admin edit may write. The
// review aggregate columns belong to the review path.
var editableColumns = []string{
	"name", "brand", "category", "price", "count_in_stock",
	"description", "image", "is_featured", "updated_at",
}

func (in ProductInput) apply(p *models.Product) error {
	if in.Name != "" {
		p.Name = strings.TrimSpace(in.Name)
	}
	if in.Brand != "" {
		p.Brand = in.Brand
	}
	if in.Category != "" {
		c, ok := models.ParseCategory(in.Category)
		if !ok {
			return apperr.Validation("unknown category %q", in.Category)
		}
		p.Category = c
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return apperr.Validation("price must not be negative")
		}
		p.Price = in.Price.Round(2)
	}
	if in.CountInStock != nil {
		if *in.CountInStock < 0 {
			return apperr.Validation("countInStock must not be negative")
		}
		p.CountInStock = *in.CountInStock
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	return nil
}

func (e *Engine) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Category == "" {
		return nil, apperr.Validation("category is required")
	}
	if in.Price == nil {
		return nil, apperr.Validation("price is required")
	}

	p := &models.Product{}
	if err := in.apply(p); err != nil {
		return nil, err
	}

	if err := e.products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	p, err := e.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Product not found")
	}

	if err := in.apply(p); err != nil {
		return nil, err
	}

	if err := e.products.Update(ctx, p, editableColumns...); err != nil {
		return nil, err
	}
	return e.Get(ctx, id)
}

// Delete removes the product together with the reviews it owns.
func (e *Engine) Delete(ctx context.Context, id uint) error {
	return e.products.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := e.products.WithTx(tx)

		p, err := products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound("Product not found")
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return apperr.Dependency(err, "failed to delete product reviews")
		}
		return products.DeleteByID(ctx, id)
	})
}
