package recording

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DoyleJ11/spin-rooms-backend/internal/engine"
)

// recordingRow is the gorm model of the recordings table.
type recordingRow struct {
	ID           string               `gorm:"primaryKey;size:36"`
	Seq          int64                `gorm:"autoIncrement;uniqueIndex"`
	RoomID       int                  `gorm:"index;not null"`
	Results      []engine.SpinResult  `gorm:"serializer:json;type:jsonb"`
	Participants []engine.Participant `gorm:"serializer:json;type:jsonb"`
	Date         time.Time            `gorm:"not null"`
	DurationSec  int                  `gorm:"not null"`
}

func (recordingRow) TableName() string { return "recordings" }

func toRow(rec Recording) recordingRow {
	return recordingRow{
		ID:           rec.ID,
		RoomID:       rec.RoomID,
		Results:      rec.Results,
		Participants: rec.Participants,
		Date:         rec.Date,
		DurationSec:  rec.DurationSec,
	}
}

func fromRow(row recordingRow) Recording {
	return Recording{
		ID:           row.ID,
		RoomID:       row.RoomID,
		Results:      row.Results,
		Participants: row.Participants,
		Date:         row.Date,
		DurationSec:  row.DurationSec,
	}
}

// GormLog persists recordings in Postgres; rows are only ever inserted.
type GormLog struct {
	db *gorm.DB
}

func NewGormLog(db *gorm.DB) *GormLog {
	if db == nil {
		panic("database connection cannot be nil for GormLog")
	}
	return &GormLog{db: db}
}

// OpenPostgres connects gorm and migrates the recordings table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&recordingRow{}); err != nil {
		return nil, fmt.Errorf("migrate recordings: %w", err)
	}
	return db, nil
}

func (l *GormLog) Append(ctx context.Context, rec Recording) error {
	row := toRow(rec)
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("gorm: insert recording %s (room %d): %w", rec.ID, rec.RoomID, err)
	}
	return nil
}

func (l *GormLog) List(ctx context.Context) ([]Recording, error) {
	var rows []recordingRow
	if err := l.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: list recordings: %w", err)
	}
	recs := make([]Recording, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, fromRow(row))
	}
	return recs, nil
}
