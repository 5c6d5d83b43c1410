package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	config "github.com/Keoroanthony/go-dairydelight/configs"
	"github.com/Keoroanthony/go-dairydelight/internal/auth"
	"github.com/Keoroanthony/go-dairydelight/internal/cart"
	"github.com/Keoroanthony/go-dairydelight/internal/catalog"
	"github.com/Keoroanthony/go-dairydelight/internal/db"
	"github.com/Keoroanthony/go-dairydelight/internal/db/dbtest"
	"github.com/Keoroanthony/go-dairydelight/internal/handlers"
	"github.com/Keoroanthony/go-dairydelight/internal/models"
	"github.com/Keoroanthony/go-dairydelight/internal/notifier"
	"github.com/Keoroanthony/go-dairydelight/internal/orders"
	"github.com/Keoroanthony/go-dairydelight/internal/reviews"
)

const testSecret = "test-secret-key"

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	customer models.User
	admin    models.User
}

func setupTestRouter(t *testing.T, carts cart.StoreFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB := dbtest.Open(t)
	originalDB := db.DB
	db.SetTestDB(testDB)
	t.Cleanup(func() { db.SetTestDB(originalDB) })

	if carts == nil {
		carts = cart.NewMemoryStores().Func()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sessions.Sessions(auth.SessionName, cookie.NewStore([]byte(testSecret))))

	handlers.Register(r, handlers.Deps{
		Catalog: catalog.NewEngine(testDB),
		Orders:  orders.NewService(testDB, notifier.NewDispatcher(testDB, config.NotificationConfig{}), orders.Options{}),
		Reviews: reviews.NewService(testDB),
		Carts:   carts,
	})

	env := &testEnv{
		router:   r,
		db:       testDB,
		customer: models.User{Name: "Test Customer", Email: "test@example.com", Phone: "1234567890", Role: models.RoleCustomer},
		admin:    models.User{Name: "Test Admin", Email: "admin@example.com", Role: models.RoleAdmin},
	}
	require.NoError(t, testDB.Create(&env.customer).Error)
	require.NoError(t, testDB.Create(&env.admin).Error)
	return env
}

func (e *testEnv) seedProduct(t *testing.T, name string, price int64, stock int) models.Product {
	t.Helper()
	p := models.Product{
		Name:         name,
		Brand:        "Amul",
		Category:     models.CategoryMilk,
		Price:        decimal.NewFromInt(price),
		CountInStock: stock,
		Description:  "fresh " + name,
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

// sessionCookie builds the cookie a logged-in browser would send. A nil
// userID leaves the session anonymous.
func sessionCookie(userID *uint, cartID string) string {
	tempW := httptest.NewRecorder()
	tempC, _ := gin.CreateTestContext(tempW)
	tempC.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	sessions.Sessions(auth.SessionName, cookie.NewStore([]byte(testSecret)))(tempC)

	session := sessions.Default(tempC)
	if userID != nil {
		session.Set(auth.SessionUserKey, *userID)
	}
	if cartID != "" {
		session.Set(auth.SessionCartKey, cartID)
	}
	_ = session.Save()

	return tempW.Header().Get("Set-Cookie")
}

func perform(router *gin.Engine, method, path string, body interface{}, cookieHeader string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response map[string]string
	decode(t, w, &response)
	return response["error"]
}
