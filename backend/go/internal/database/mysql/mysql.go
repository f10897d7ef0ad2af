package mysql

import (
	"context"
	"fmt"
	"time"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 根据配置打开关系型数据库连接 (mysql 或 sqlite)。
// 返回的 *gorm.DB 由调用方持有并通过 Close 释放，不再使用全局单例。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQLDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("无法获取底层 SQL DB 实例: %w", err)
	}

	// 配置连接池参数
	if cfg.Driver == "mysql" {
		if cfg.MySQL.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		}
		if cfg.MySQL.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		}
		if cfg.MySQL.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.ConnMaxLifetime) * time.Second)
		}
	} else {
		// sqlite 只允许单个写连接
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate 创建或更新所有表结构。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close 关闭底层连接。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 SQL DB 实例失败: %w", err)
	}
	return sqlDB.Close()
}

// HealthCheck 检查数据库连接的健康状况。
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("无法获取底层 SQL DB 实例进行健康检查: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
