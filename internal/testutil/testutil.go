package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/api"
	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/repository"
	repoPostgres "github.com/dom/athlete-log/internal/repository/postgres"
	"github.com/dom/athlete-log/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_athlete_log"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"activity_records",
		"strava_credentials",
		"user_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                 "0", // Random port
		Environment:          "test",
		JWTSecret:            "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours:   1,
		RefreshTokenDays:     7,
		OAuthRedirectBaseURL: "http://localhost/api/v1/auth",
		StravaClientID:       "test-client",
		StravaClientSecret:   "test-secret",
		StravaPageSize:       30,
		StravaHTTPTimeout:    5 * time.Second,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server    *httptest.Server
	Store     *MemoryStore
	Repos     *repository.Repositories
	Services  *service.Services
	Strava    *StravaFake
	Publisher *RecordingPublisher
	Config    *config.Config
}

// NewTestServer creates a test server backed by in-memory repositories and a
// fake Strava API
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWith(t, nil)
}

// NewTestServerWith is NewTestServer with configure applied to the config
// before services are built.
func NewTestServerWith(t *testing.T, configure func(*config.Config)) *TestServer {
	t.Helper()

	cfg := TestConfig()
	if configure != nil {
		configure(cfg)
	}
	store := NewMemoryStore()
	repos := store.Repositories()
	fake := NewStravaFake(t)
	publisher := &RecordingPublisher{}
	log := zap.NewNop()

	services := service.NewServices(repos, cfg, fake.Client(), publisher, log)
	router := api.NewRouter(services, cfg, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:    server,
		Store:     store,
		Repos:     repos,
		Services:  services,
		Strava:    fake,
		Publisher: publisher,
		Config:    cfg,
	}

	t.Cleanup(func() {
		server.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}
