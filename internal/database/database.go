package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/feedimport/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the sqlite database at dbPath and migrates every entity.
// logLevel controls gorm's SQL logging; pass logger.Silent to disable it.
func NewDatabase(dbPath string, logLevel logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

// Migrate creates or updates the schema of every entity.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.Task{},
		&entities.Item{},
		&entities.Article{},
		&entities.AuditEvent{},
		&entities.SchedulerLock{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats returns the number of tasks, ledger items and articles.
func (d *Database) Stats() (tasks int64, items int64, articles int64, err error) {
	if err = d.DB.Model(&entities.Task{}).Count(&tasks).Error; err != nil {
		return
	}
	if err = d.DB.Model(&entities.Item{}).Count(&items).Error; err != nil {
		return
	}
	err = d.DB.Model(&entities.Article{}).Count(&articles).Error
	return
}

// ItemStatusCounts returns the number of ledger items per status for a task.
// A zero taskID counts items of every task.
func (d *Database) ItemStatusCounts(taskID uint) (map[entities.ItemStatus]int64, error) {
	var rows []struct {
		StatusID entities.ItemStatus
		Total    int64
	}
	query := d.DB.Model(&entities.Item{}).Select("status_id, COUNT(*) AS total").Group("status_id")
	if taskID > 0 {
		query = query.Where("task_id = ?", taskID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[entities.ItemStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.StatusID] = row.Total
	}
	return counts, nil
}
