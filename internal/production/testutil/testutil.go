package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/lineplan/internal/middleware"
	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/bitfantasy/lineplan/internal/production/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "lineplan-test-secret"

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens a private in-memory sqlite database with all tables migrated.
// The database disappears when the test finishes.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// 每个连接都是独立的内存库，必须固定为单连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		Name:   name,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "lineplan",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a planner test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Planner", []string{"planner"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedStyle creates a style whose bulletin gives the requested SAM and operator count.
// A single operation carries all the time and all the operators.
func SeedStyle(t *testing.T, db *gorm.DB, id string, sam float64, operators int) *entity.Style {
	t.Helper()
	style := &entity.Style{
		ID:   id,
		Code: "STY-" + id,
		Name: "Style " + id,
		Operations: []entity.StyleOperation{{
			ID:                 id + "-op1",
			StyleID:            id,
			Seq:                1,
			Name:               "Assemble",
			SewingTime:         sam * 60,
			AllocatedOperators: operators,
		}},
	}
	if err := db.Create(style).Error; err != nil {
		t.Fatalf("Failed to seed style: %v", err)
	}
	return style
}

// SeedOrder creates an order with one color per quantity, colors named C1, C2, ...
func SeedOrder(t *testing.T, db *gorm.DB, id, styleID string, quantities ...int) *entity.Order {
	t.Helper()
	order := &entity.Order{
		ID:      id,
		Code:    "ORD-" + id,
		StyleID: styleID,
		Status:  entity.OrderStatusOpen,
	}
	for i, q := range quantities {
		order.Colors = append(order.Colors, entity.OrderColor{
			ID:        fmt.Sprintf("%s-c%d", id, i+1),
			OrderID:   id,
			Name:      fmt.Sprintf("C%d", i+1),
			Quantity:  q,
			SortOrder: i,
		})
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}
	return order
}

// SeedLines creates active lines with the given IDs
func SeedLines(t *testing.T, db *gorm.DB, ids ...string) []entity.Line {
	t.Helper()
	lines := make([]entity.Line, 0, len(ids))
	for i, id := range ids {
		line := entity.Line{
			ID:        id,
			Code:      "LN-" + id,
			Name:      "Line " + id,
			Status:    entity.LineStatusActive,
			SortOrder: i,
		}
		if err := db.Create(&line).Error; err != nil {
			t.Fatalf("Failed to seed line: %v", err)
		}
		lines = append(lines, line)
	}
	return lines
}

// SeedPlan creates one persisted daily line plan
func SeedPlan(t *testing.T, db *gorm.DB, id, orderID, lineID, colorID string, date planning.Date, qty int) *entity.DailyLinePlan {
	t.Helper()
	plan := entity.PlanFromRecord(planning.PlanRecord{
		ID:              id,
		OrderID:         orderID,
		LineID:          lineID,
		ColorID:         colorID,
		Date:            date,
		PlannedQuantity: qty,
		Manpower:        planning.Manpower{Operators: 1},
	}, "seed")
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("Failed to seed plan: %v", err)
	}
	return &plan
}
