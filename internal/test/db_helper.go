package test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// SetupTestDB 设置测试数据库连接
// 连不上时跳过用例，保证无数据库环境下测试套件仍可运行
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	host := getEnv("TEST_DB_HOST", "localhost")
	port := getEnv("TEST_DB_PORT", "5432")
	user := getEnv("TEST_DB_USER", "postgres")
	password := getEnv("TEST_DB_PASSWORD", "postgres")
	dbname := getEnv("TEST_DB_NAME", "tsu_db")

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable search_path=combat_runtime,combat_config,public",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skipf("无法连接测试数据库: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("无法ping测试数据库: %v", err)
	}

	return db
}

// TeardownTestDB 清理测试数据库
func TeardownTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	if db != nil {
		db.Close()
	}
}

// CleanupUserRows 删除指定用户在运行时表中的数据
// 用于集成测试收尾，按外键依赖顺序删除
func CleanupUserRows(t *testing.T, db *sql.DB, userID string) {
	t.Helper()

	for _, stmt := range []string{
		"DELETE FROM combat_runtime.currency_transactions WHERE user_id = $1",
		"DELETE FROM combat_runtime.wallets WHERE user_id = $1",
		"DELETE FROM combat_runtime.material_stacks WHERE user_id = $1",
		"DELETE FROM combat_runtime.player_items WHERE user_id = $1",
		"DELETE FROM combat_runtime.combat_histories WHERE user_id = $1",
		"DELETE FROM combat_runtime.progressions WHERE user_id = $1",
	} {
		if _, err := db.Exec(stmt, userID); err != nil {
			t.Logf("清理测试数据失败: %v", err)
		}
	}
}

// getEnv 获取环境变量,如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
