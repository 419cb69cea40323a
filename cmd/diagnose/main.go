// Command diagnose checks the configuration and the external connections the
// server depends on, without starting it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/repository/postgres"
	"github.com/segmentio/kafka-go"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	fmt.Println("============================================================")
	fmt.Println("ATHLETE LOG DIAGNOSTICS")
	fmt.Println("============================================================")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("\n✗ Configuration invalid: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	problems := 0
	problems += checkCredentials(cfg)
	problems += checkDatabase(ctx, cfg)
	problems += checkKafka(ctx, cfg)

	fmt.Println()
	fmt.Println("============================================================")
	if problems == 0 {
		fmt.Println("Configuration looks good!")
	} else {
		fmt.Printf("%d problem(s) found.\n", problems)
		if !cfg.StravaConfigured() {
			fmt.Println()
			fmt.Println("To enable Strava sync:")
			fmt.Println("1. Go to https://www.strava.com/settings/api")
			fmt.Println("2. Create an API application")
			fmt.Println("3. Set STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET and STRAVA_REDIRECT_URI")
		}
	}
	fmt.Println("============================================================")

	if problems > 0 {
		os.Exit(1)
	}
}

// checkCredentials reports which client credentials are present. Values are
// never printed.
func checkCredentials(cfg *config.Config) int {
	fmt.Println("\n1. Client credentials:")

	problems := 0
	report := func(name string, set bool, required bool) {
		switch {
		case set:
			fmt.Printf("   ✓ %s: set\n", name)
		case required:
			fmt.Printf("   ✗ %s: NOT SET\n", name)
			problems++
		default:
			fmt.Printf("   - %s: not set (optional)\n", name)
		}
	}

	report("STRAVA_CLIENT_ID", cfg.StravaClientID != "", true)
	report("STRAVA_CLIENT_SECRET", cfg.StravaClientSecret != "", true)
	fmt.Printf("   ✓ STRAVA_REDIRECT_URI: %s\n", cfg.StravaRedirectURI)
	report("Google login", cfg.GoogleConfigured(), false)
	report("GitHub login", cfg.GitHubConfigured(), false)

	return problems
}

func checkDatabase(ctx context.Context, cfg *config.Config) int {
	fmt.Println("\n2. Database:")

	db, err := gorm.Open(gormPostgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("   ✗ Connection failed: %v\n", err)
		return 1
	}

	sqlDB, err := db.DB()
	if err != nil {
		fmt.Printf("   ✗ Connection failed: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		fmt.Printf("   ✗ Database unreachable: %v\n", err)
		return 1
	}
	fmt.Println("   ✓ Database reachable")

	if !db.Migrator().HasTable("strava_credentials") {
		fmt.Println("   ℹ Schema not migrated yet (the server migrates on start)")
		return 0
	}

	count, err := postgres.NewCredentialRepository(db).Count(ctx)
	if err != nil {
		fmt.Printf("   ✗ Could not count Strava connections: %v\n", err)
		return 1
	}
	if count == 0 {
		fmt.Println("   ℹ No Strava connections yet")
	} else {
		fmt.Printf("   ✓ Connected Strava accounts: %d\n", count)
	}
	return 0
}

func checkKafka(ctx context.Context, cfg *config.Config) int {
	fmt.Println("\n3. Activity events:")

	if !cfg.KafkaEnabled() {
		fmt.Println("   - KAFKA_BROKERS not set, events are discarded")
		return 0
	}

	problems := 0
	for _, broker := range cfg.KafkaBrokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			fmt.Printf("   ✗ %s: %v\n", broker, err)
			problems++
			continue
		}
		conn.Close()
		fmt.Printf("   ✓ %s reachable\n", broker)
	}
	fmt.Printf("   ✓ Topic: %s\n", cfg.KafkaActivityTopic)
	return problems
}
