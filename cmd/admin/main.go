package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"cvbuilder/internal/auth"
	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
)

// 用法: admin -email ada@example.com [-username ada] [-db-host ...]
// 数据库连接默认取与 api 相同的环境变量，命令行参数优先。
func main() {
	var (
		email    = flag.String("email", "", "账号邮箱（必填）")
		username = flag.String("username", "", "用户名（默认取邮箱 @ 之前的部分）")
		dbHost   = flag.String("db-host", "", "覆盖 DATABASE_HOST")
		dbPort   = flag.Int("db-port", 0, "覆盖 DATABASE_PORT")
		dbName   = flag.String("db-name", "", "覆盖 POSTGRES_DB")
		dbUser   = flag.String("db-user", "", "覆盖 POSTGRES_USER")
		dbPass   = flag.String("db-password", "", "覆盖 POSTGRES_PASSWORD")
		sslMode  = flag.String("db-sslmode", "", "覆盖 DATABASE_SSLMODE")
	)
	flag.Parse()

	mail, name, err := normalizeAccount(*email, *username)
	if err != nil {
		log.Fatal(err)
	}

	dbCfg, err := config.DatabaseFromEnv()
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}
	dbCfg = overrideDatabase(dbCfg, *dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err := dbCfg.Validate(); err != nil {
		log.Fatalf("database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	password, err := createAccount(ctx, db, name, mail)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("已创建账号：\n用户名: %s\n邮箱: %s\n初始密码: %s\n", name, mail, password)
	fmt.Println("提示：该密码仅显示一次。")
}

func normalizeAccount(email, username string) (mail, name string, err error) {
	mail = strings.ToLower(strings.TrimSpace(email))
	if mail == "" {
		return "", "", errors.New("missing required flag: -email")
	}
	name = strings.TrimSpace(username)
	if name == "" {
		name, _, _ = strings.Cut(mail, "@")
	}
	if msg := auth.ValidateRegistration(name, mail, "", "placeholder"); msg != "" {
		return "", "", fmt.Errorf("invalid account: %s", msg)
	}
	return mail, name, nil
}

func overrideDatabase(cfg config.DatabaseConfig, host string, port int, name, user, password, sslmode string) config.DatabaseConfig {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Host, host)
	set(&cfg.Name, name)
	set(&cfg.User, user)
	set(&cfg.Password, password)
	set(&cfg.SSLMode, sslmode)
	if port > 0 {
		cfg.Port = port
	}
	return cfg
}

// createAccount 以随机初始密码创建用户，返回明文密码。
func createAccount(ctx context.Context, db *gorm.DB, username, email string) (string, error) {
	var existing database.User
	switch err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		return "", fmt.Errorf("user %q already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return "", fmt.Errorf("query user: %w", err)
	}

	password, err := auth.RandomPassword(24)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := database.User{Username: username, Email: email, PasswordHash: hashed}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return password, nil
}
