// Helpers for running tests against real backing services. Used by the
// integration tests and by the standalone dev-stack launcher in
// cmd/testcontainers. Expects environment variables to be loaded from .env
// files.
package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Endpoint is a host:port pair mapped onto localhost.
type Endpoint struct {
	Host string
	Port string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Host, e.Port)
}

// TestContainers is the backing stack for integration tests: Postgres for the
// roadmap tables and Redis for the public-read cache.
type TestContainers struct {
	Network        *testcontainers.DockerNetwork
	DBContainer    testcontainers.Container
	CacheContainer testcontainers.Container

	DB    Endpoint
	Cache Endpoint
}

func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.CacheContainer != nil {
		if err := tc.CacheContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Redis: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Postgres: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts the full backing stack. Image names and
// credentials come from the environment with sensible defaults, so the same
// code serves CI and the local dev launcher.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	testContainers.Network = nw
	networkName := nw.Name

	// Postgres
	tcpDbPort, err := nat.NewPort("tcp", getEnv("DB_PORT", "5432"))
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create DB port")
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("POSTGRES_IMAGE", "postgres:16-alpine"),
			ExposedPorts: []string{string(tcpDbPort)},
			Env: map[string]string{
				"POSTGRES_USER":     getEnv("DB_USER", "belajaryuk"),
				"POSTGRES_PASSWORD": getEnv("DB_PASSWORD", "belajaryuk"),
				"POSTGRES_DB":       getEnv("DB_DATABASE", "belajaryuk_test"),
			},
			WaitingFor: wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"postgres"},
			},
		},
		Started: true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start Postgres")
	}
	testContainers.DBContainer = dbContainer

	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDbPort)
	testContainers.DB = Endpoint{Host: dbHost, Port: dbPort.Port()}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", dbHost, dbPort.Port())

	// Redis
	tcpCachePort, err := nat.NewPort("tcp", "6379")
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create cache port")
	}
	cacheContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("REDIS_IMAGE", "redis:7-alpine"),
			ExposedPorts: []string{string(tcpCachePort)},
			WaitingFor:   wait.ForListeningPort(tcpCachePort).WithStartupTimeout(30 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"redis"},
			},
		},
		Started: true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start Redis")
	}
	testContainers.CacheContainer = cacheContainer

	cacheHost, _ := cacheContainer.Host(ctx)
	cachePort, _ := cacheContainer.MappedPort(ctx, tcpCachePort)
	testContainers.Cache = Endpoint{Host: cacheHost, Port: cachePort.Port()}
	logMessage(t, "REDIS_ADDR=%s:%s", cacheHost, cachePort.Port())

	logMessage(t, "Backing stack started successfully")
	return testContainers, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
