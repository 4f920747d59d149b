package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cvbuilder/internal/config"
	"cvbuilder/internal/layout"
)

// InitDatabase 使用配置初始化 PostgreSQL 连接，并返回 GORM 数据库实例。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate 迁移全部模型。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedLayouts 写入缺失的内置版式，已存在的记录保持不变。返回新写入的记录。
func SeedLayouts(ctx context.Context, db *gorm.DB) ([]Layout, error) {
	var created []Layout
	for _, d := range layout.DefaultCatalog() {
		var existing Layout
		err := db.WithContext(ctx).Where("slug = ?", d.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("query layout %q: %w", d.ID, err)
		}

		row, err := NewLayout(d)
		if err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("create layout %q: %w", d.ID, err)
		}
		created = append(created, row)
	}
	return created, nil
}
