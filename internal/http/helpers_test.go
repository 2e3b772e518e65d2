package httpapi

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-accounts-backend/internal/config"
	"github.com/tbourn/go-accounts-backend/internal/repo"
)

// testDatabaseURI returns DATABASE_URI when set, so the suites can run
// against PostgreSQL, and a private in-memory SQLite database otherwise.
func testDatabaseURI(name string) string {
	if uri := strings.TrimSpace(os.Getenv("DATABASE_URI")); uri != "" {
		return uri
	}
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name)
}

// openTestDB opens and migrates the test database.
func openTestDB(name string) (*gorm.DB, error) {
	db, err := repo.Open(testDatabaseURI(name), repo.OpenOptions{MaxOpenConns: 1})
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openTestDB(t.Name())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// testConfig mirrors production defaults with HTTPS redirection disabled and
// a rate limit high enough never to interfere.
func testConfig() config.Config {
	return config.Config{
		Version:     "test",
		APIBasePath: "/",
		RateRPS:     1000,
		RateBurst:   1000,
		Security: config.SecurityConfig{
			ForceHTTPS: false,
		},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "accounts-test"},
	}
}

func newTestEngine(db *gorm.DB, cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r
}
