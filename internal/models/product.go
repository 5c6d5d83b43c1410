package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null;index" json:"name"`
	Brand        string          `json:"brand"`
	Category     Category        `gorm:"type:varchar(20);index;not null" json:"category"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CountInStock int             `gorm:"not null;default:0" json:"countInStock"`
	Description  string          `gorm:"type:text" json:"description"`
	Image        string          `json:"image"`
	IsFeatured   bool            `gorm:"index;not null;default:false" json:"isFeatured"`
	Rating       float64         `gorm:"not null;default:0" json:"rating"`
	NumReviews   int             `gorm:"not null;default:0" json:"numReviews"`
	Reviews      []Review        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Review is owned by exactly one product; (product, author) is unique.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user"`
	Name      string    `gorm:"not null" json:"name"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
