package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/apollo-indexer/internal/entities"
)

// ErrNotFound is returned when a run or batch does not exist.
var ErrNotFound = errors.New("record not found")

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Run{},
		&entities.BatchRecord{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Run ledger initialized at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the ledger is reachable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// StartRun records a new load of collection into index.
func (d *Database) StartRun(index, collection string, totalDocs, batchSize, batches int) (*entities.Run, error) {
	now := time.Now()
	run := &entities.Run{
		Index:      index,
		Collection: collection,
		Status:     entities.RunStatusRunning,
		TotalDocs:  totalDocs,
		BatchSize:  batchSize,
		Batches:    batches,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.DB.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// RecordBatch stores the outcome of a batch. Recording the same batch of a
// run again replaces its status and error and adds to its attempt count.
func (d *Database) RecordBatch(rec *entities.BatchRecord) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		var existing entities.BatchRecord
		err := tx.Where("run_id = ? AND batch = ?", rec.RunID, rec.Batch).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(rec).Error
		}
		if err != nil {
			return err
		}

		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.Attempts += existing.Attempts
		return tx.Save(rec).Error
	})
}

// SyncRun recomputes a run's counters and status from its batches.
//
// A run with queued batches is still running. Otherwise it is completed when
// no batch failed, failed when no batch succeeded, and partial in between.
func (d *Database) SyncRun(runID uint) (*entities.Run, error) {
	run, err := d.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var batches []entities.BatchRecord
	if err := d.DB.Where("run_id = ?", runID).Find(&batches).Error; err != nil {
		return nil, err
	}

	run.Indexed, run.Failed = 0, 0
	queued, succeeded, failed := 0, 0, 0
	var lastError string
	for _, b := range batches {
		switch b.Status {
		case entities.BatchStatusSucceeded:
			succeeded++
			run.Indexed += b.Count
		case entities.BatchStatusFailed:
			failed++
			run.Failed += b.Count
			lastError = b.Error
		default:
			queued++
		}
	}
	// Batches never submitted, e.g. after a stop on failure.
	unsent := run.Batches - len(batches)

	now := time.Now()
	run.UpdatedAt = now
	run.Error = lastError
	switch {
	case queued > 0:
		run.Status = entities.RunStatusRunning
	case failed == 0 && unsent <= 0:
		run.Status = entities.RunStatusCompleted
	case succeeded == 0 && run.Batches > 0:
		run.Status = entities.RunStatusFailed
	default:
		run.Status = entities.RunStatusPartial
	}
	if run.Status == entities.RunStatusRunning {
		run.CompletedAt = nil
	} else if run.CompletedAt == nil {
		run.CompletedAt = &now
	}

	if err := d.DB.Save(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// FailRun marks a run failed without reference to its batches.
func (d *Database) FailRun(runID uint, cause error) error {
	now := time.Now()
	return d.DB.Model(&entities.Run{}).Where("id = ?", runID).Updates(map[string]any{
		"status":       entities.RunStatusFailed,
		"error":        cause.Error(),
		"updated_at":   now,
		"completed_at": now,
	}).Error
}

func (d *Database) GetRun(id uint) (*entities.Run, error) {
	var run entities.Run
	if err := d.DB.First(&run, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

func (d *Database) GetBatch(runID uint, batch int) (*entities.BatchRecord, error) {
	var rec entities.BatchRecord
	err := d.DB.Where("run_id = ? AND batch = ?", runID, batch).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// ListBatches returns every batch of a run in submission order.
func (d *Database) ListBatches(runID uint) ([]entities.BatchRecord, error) {
	var batches []entities.BatchRecord
	err := d.DB.Where("run_id = ?", runID).Order("batch ASC").Find(&batches).Error
	return batches, err
}

// FailedBatches returns the failed batches of a run in submission order.
func (d *Database) FailedBatches(runID uint) ([]entities.BatchRecord, error) {
	var batches []entities.BatchRecord
	err := d.DB.Where("run_id = ? AND status = ?", runID, entities.BatchStatusFailed).
		Order("batch ASC").Find(&batches).Error
	return batches, err
}

// LatestRuns returns the most recent runs, newest first.
func (d *Database) LatestRuns(limit int) ([]entities.Run, error) {
	var runs []entities.Run
	query := d.DB.Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
