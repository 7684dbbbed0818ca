package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/vnquant/pkg/config"
	"github.com/wonny/vnquant/pkg/database"
	"github.com/wonny/vnquant/pkg/redis"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "캐시 DB / Redis 연결 테스트",
	Long: `설정된 저장소 연결을 테스트하고 상태를 표시합니다.

이 명령어는:
- SQLite 캐시 파일 열기 (CACHE_BACKEND=sqlite)
- PostgreSQL Ping 및 풀 통계 (DATABASE_URL 설정 시)
- Redis Ping (REDIS_ENABLED=true 시)

Example:
  go run ./cmd/quant test-db
  go run ./cmd/quant test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== vnquant Storage Connection Test ===")

	// Load configuration
	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	fmt.Printf("✅ Config loaded (ENV: %s, cache backend: %s)\n\n", cfg.Env, cfg.Cache.Backend)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	failed := 0

	if cfg.Cache.Backend != "postgres" {
		fmt.Printf("Opening SQLite cache %s...\n", cfg.Cache.SQLitePath)
		db, err := database.OpenSQLite(cfg.Cache.SQLitePath)
		if err != nil {
			PrintError(fmt.Sprintf("SQLite: %v", err))
			failed++
		} else {
			status, err := db.HealthCheck(ctx)
			printHealth(status, err)
			if err != nil {
				failed++
			} else {
				PrintKeyValue("Size", sizeMB(db.SizeMB()), 14)
			}
			db.Close()
		}
		fmt.Println()
	}

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL %s...\n", redactURL(cfg.Database.URL))
		db, err := database.New(ctx, cfg)
		if err != nil {
			PrintError(fmt.Sprintf("PostgreSQL: %v", err))
			failed++
		} else {
			status, err := db.HealthCheck(ctx)
			printHealth(status, err)
			if err != nil {
				failed++
			}
			db.Close()
		}
		fmt.Println()
	} else if cfg.Cache.Backend == "postgres" {
		PrintError("CACHE_BACKEND=postgres 이지만 DATABASE_URL 이 비어 있음")
		failed++
	}

	if cfg.Redis.Enabled {
		fmt.Printf("Connecting to Redis %s:%s...\n", cfg.Redis.Host, cfg.Redis.Port)
		start := time.Now()
		rc, err := redis.New(ctx, cfg)
		if err != nil {
			PrintError(fmt.Sprintf("Redis: %v", err))
			failed++
		} else {
			PrintSuccess(fmt.Sprintf("Redis ping OK (%v)", time.Since(start).Round(time.Millisecond)))
			rc.Close()
		}
	} else {
		PrintInfo("Redis disabled (REDIS_ENABLED=false)")
	}

	if failed > 0 {
		return fmt.Errorf("❌ %d check(s) failed", failed)
	}
	fmt.Println("\n✅ All tests passed!")
	return nil
}

func printHealth(status *database.HealthStatus, err error) {
	if err != nil {
		PrintError(fmt.Sprintf("%s health check failed: %v", status.Backend, err))
		return
	}
	PrintSuccess(fmt.Sprintf("%s healthy", status.Backend))
	PrintKeyValue("Response Time", status.ResponseTime.String(), 14)
	PrintKeyValue("Open Conns", fmt.Sprintf("%d", status.OpenConns), 14)
	PrintKeyValue("In Use / Idle", fmt.Sprintf("%d / %d", status.InUse, status.Idle), 14)
}

// redactURL masks the password in a connection URL for display
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
