// Package reviews records product reviews and keeps each product's rating
// and review count equal to the mean and size of its review set.
package reviews

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/metrics"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Input struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type Service struct {
	db *gorm.DB
}

func NewService(conn *gorm.DB) *Service {
	return &Service{db: conn}
}

// recompute rewrites both aggregates from the review rows in one statement,
// so concurrent submissions cannot interleave a stale read with the write.
const recompute = `UPDATE products SET
	num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = ?),
	rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = ?)
WHERE id = ?`

// Submit appends author's review to the product. A second review by the same
// author is a Duplicate error and leaves the aggregates untouched.
func (s *Service) Submit(ctx context.Context, productID uint, author *models.User, in Input) (*models.Review, error) {
	if author == nil {
		return nil, apperr.Unauthorized("not authorized, please log in")
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		metrics.ReviewsSubmitted.WithLabelValues("invalid").Inc()
		return nil, apperr.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    author.ID,
		Name:      author.Name,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Select("id").First(&product, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Product not found")
		}
		if err != nil {
			return apperr.Dependency(err, "failed to load product")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("product_id = ? AND user_id = ?", productID, author.ID).
			Count(&existing).Error; err != nil {
			return apperr.Dependency(err, "failed to check existing reviews")
		}
		if existing > 0 {
			return apperr.Duplicate("Product already reviewed")
		}

		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Duplicate("Product already reviewed")
			}
			return apperr.Dependency(err, "failed to save review")
		}

		if err := tx.Exec(recompute, productID, productID, productID).Error; err != nil {
			return apperr.Dependency(err, "failed to update product rating")
		}
		return nil
	})
	if err != nil {
		metrics.ReviewsSubmitted.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	metrics.ReviewsSubmitted.WithLabelValues("accepted").Inc()
	slog.InfoContext(ctx, "review added", "product_id", productID, "user_id", author.ID, "rating", in.Rating)
	return review, nil
}

func resultLabel(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindDuplicate:
		return "duplicate"
	case apperr.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}
