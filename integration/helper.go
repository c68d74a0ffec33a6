package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/iyhunko/inventory-sync/internal/cache"
	"github.com/iyhunko/inventory-sync/internal/config"
	httpAPI "github.com/iyhunko/inventory-sync/internal/http"
	"github.com/iyhunko/inventory-sync/internal/http/controller"
	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/repository/file"
	reposql "github.com/iyhunko/inventory-sync/internal/repository/sql"
	"github.com/iyhunko/inventory-sync/internal/service"
	"github.com/iyhunko/inventory-sync/internal/webhook"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const testAPIKey = "integration-key"

// TestDB holds the test database connection and cleanup function
type TestDB struct {
	DB       *sql.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestDB sets up a PostgreSQL container using dockertest and runs migrations
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipShort(t)

	pool := newPool(t)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=testdb",
			"listen_addresses='*'",
		},
	}, hostConfig)
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	// Set container to expire after 2 minutes to avoid orphaned containers
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	hostAndPort := resource.GetHostPort("5432/tcp")
	databaseURL := fmt.Sprintf("postgres://testuser:secret@%s/testdb?sslmode=disable", hostAndPort)

	log.Println("Connecting to database on url: ", databaseURL)

	var db *sql.DB
	if err = pool.Retry(func() error {
		var err error
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}

	// Get the migrations path - go up from integration folder to root
	migrationsPath := "../migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Fatalf("Migrations directory not found: %s", migrationsPath)
	}
	if err := reposql.RunMigrations(db, migrationsPath); err != nil {
		t.Fatalf("Could not run migrations: %s", err)
	}

	return &TestDB{
		DB:       db,
		Pool:     pool,
		Resource: resource,
	}
}

// Cleanup closes the database connection and purges the Docker container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		if err := tdb.DB.Close(); err != nil {
			t.Errorf("Could not close database: %s", err)
		}
	}

	if tdb.Pool != nil && tdb.Resource != nil {
		if err := tdb.Pool.Purge(tdb.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// TruncateTables truncates all tables in the test database
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	if _, err := tdb.DB.ExecContext(context.Background(), "TRUNCATE TABLE sync_runs"); err != nil {
		t.Fatalf("Could not truncate table sync_runs: %s", err)
	}
}

// TestRedis holds a redis container and a connected client.
type TestRedis struct {
	Client   *redis.Client
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestRedis starts a redis container and connects to it with cache.NewRedisClient.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	skipShort(t)

	pool := newPool(t)
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, hostConfig)
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	var client *redis.Client
	if err = pool.Retry(func() error {
		var err error
		client, err = cache.NewRedisClient(context.Background(), config.Redis{Addr: resource.GetHostPort("6379/tcp")})
		return err
	}); err != nil {
		t.Fatalf("Could not connect to redis: %s", err)
	}

	return &TestRedis{Client: client, Pool: pool, Resource: resource}
}

// Cleanup closes the client and purges the container.
func (tr *TestRedis) Cleanup(t *testing.T) {
	t.Helper()

	if tr.Client != nil {
		if err := tr.Client.Close(); err != nil {
			t.Errorf("Could not close redis client: %s", err)
		}
	}
	if tr.Pool != nil && tr.Resource != nil {
		if err := tr.Pool.Purge(tr.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// Stack is a fully wired API over a temporary store.
type Stack struct {
	Router  *gin.Engine
	Service *service.InventoryService
	Store   *file.Store
}

// NewStack wires the router the way the service binary does. db and redisClient may be nil.
func NewStack(t *testing.T, db *sql.DB, redisClient *redis.Client) *Stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := &config.Config{Inventory: config.Inventory{APIKey: testAPIKey}}
	store := file.NewStore(filepath.Join(t.TempDir(), "inventory.json"))
	backups := file.NewBackupManager(store)

	deps := service.InventoryDeps{
		Store:   store,
		Commits: file.NewTransactionalRepository(store, backups),
		Backups: backups,
		Fetcher: inventory.NewFetcher(5 * time.Second),
		Policy:  service.BackupPolicy{RetentionDays: 30, KeepMinimum: 2},
	}
	if db != nil {
		conf.Database.Host = "dockertest"
		deps.SyncRuns = reposql.NewSyncRunRepository(db)
	}
	if redisClient != nil {
		conf.Redis.Addr = redisClient.Options().Addr
		deps.Cache = cache.NewProductCache(redisClient, time.Minute)
	}
	inventoryService := service.NewInventoryService(deps)

	router := httpAPI.InitRouter(conf, gin.New(), httpAPI.Controllers{
		Base:      controller.New(conf),
		Inventory: controller.NewInventoryController(inventoryService),
		Product:   controller.NewProductController(inventoryService),
		Backup:    controller.NewBackupController(inventoryService),
		Order:     controller.NewOrderController(service.NewOrderService(webhook.NewClient("", 0))),
	})
	return &Stack{Router: router, Service: inventoryService, Store: store}
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
}

func newPool(t *testing.T) *dockertest.Pool {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
	// Set max wait time for Docker operations
	pool.MaxWait = 120 * time.Second
	return pool
}

func hostConfig(hc *docker.HostConfig) {
	hc.AutoRemove = true
	hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
}
