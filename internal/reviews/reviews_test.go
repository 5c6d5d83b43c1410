package reviews_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Keoroanthony/go-dairydelight/internal/apperr"
	"github.com/Keoroanthony/go-dairydelight/internal/db/dbtest"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/reviews"
)

func seedProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Paneer", Category: models.CategoryPaneer, Price: decimal.NewFromInt(90), CountInStock: 5}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func reload(t *testing.T, conn *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, conn.First(&p, id).Error)
	return p
}

func TestSubmitRecomputesAggregates(t *testing.T) {
	conn := dbtest.Open(t)
	p := seedProduct(t, conn)
	svc := reviews.NewService(conn)
	ctx := context.Background()

	ratings := []int{5, 4, 2}
	for i, r := range ratings {
		author := &models.User{ID: uint(i + 1), Name: fmt.Sprintf("user-%d", i+1)}
		review, err := svc.Submit(ctx, p.ID, author, reviews.Input{Rating: r, Comment: " good "})
		require.NoError(t, err)
		assert.Equal(t, "good", review.Comment)
		assert.Equal(t, author.Name, review.Name)
	}

	got := reload(t, conn, p.ID)
	assert.Equal(t, 3, got.NumReviews)
	assert.InDelta(t, 11.0/3.0, got.Rating, 1e-9)
}

func TestSubmitRejections(t *testing.T) {
	conn := dbtest.Open(t)
	p := seedProduct(t, conn)
	svc := reviews.NewService(conn)
	ctx := context.Background()
	author := &models.User{ID: 1, Name: "Asha"}

	_, err := svc.Submit(ctx, p.ID, author, reviews.Input{Rating: 4})
	require.NoError(t, err)
	before := reload(t, conn, p.ID)

	cases := []struct {
		name    string
		product uint
		author  *models.User
		rating  int
		target  error
	}{
		{"second review by same author", p.ID, author, 1, apperr.ErrDuplicate},
		{"rating below range", p.ID, &models.User{ID: 2, Name: "Ravi"}, 0, apperr.ErrValidation},
		{"rating above range", p.ID, &models.User{ID: 2, Name: "Ravi"}, 6, apperr.ErrValidation},
		{"missing product", 9999, &models.User{ID: 2, Name: "Ravi"}, 3, apperr.ErrNotFound},
		{"anonymous", p.ID, nil, 3, apperr.ErrAuthorization},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.product, tc.author, reviews.Input{Rating: tc.rating})
			assert.ErrorIs(t, err, tc.target)

			after := reload(t, conn, p.ID)
			assert.Equal(t, before.NumReviews, after.NumReviews)
			assert.Equal(t, before.Rating, after.Rating)
		})
	}

	var n int64
	conn.Model(&models.Review{}).Where("product_id = ?", p.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestConcurrentSubmissionsKeepAggregatesConsistent(t *testing.T) {
	conn := dbtest.Open(t)
	p := seedProduct(t, conn)
	svc := reviews.NewService(conn)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			author := &models.User{ID: uint(i + 1), Name: fmt.Sprintf("user-%d", i+1)}
			_, err := svc.Submit(context.Background(), p.ID, author, reviews.Input{Rating: i%5 + 1})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := reload(t, conn, p.ID)
	assert.Equal(t, n, got.NumReviews)
	assert.InDelta(t, 3.0, got.Rating, 1e-9)
}
