package timeclock

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Row is one raw punch event as stored by the biometric controller.
// The checkinout table is written by the device vendor's software; field
// formats vary between firmware versions, so Time may be "HH:MM:SS",
// "HH:MM" or a seconds-since-midnight count. Normalization happens in the
// ingest service, not here.
type Row struct {
	ExternalEmployeeID string `gorm:"column:badgenumber"`
	Date               string `gorm:"column:checkdate"`
	Time               string `gorm:"column:checktime"`
	Direction          string `gorm:"column:checktype"`
}

func (Row) TableName() string {
	return "checkinout"
}

// Gateway is the read-only query interface against the external
// time-clock database. The engine never writes to it.
type Gateway interface {
	FetchPunches(ctx context.Context, from time.Time) ([]Row, error)
}

type mysqlGateway struct {
	db *gorm.DB
}

// NewMySQLGateway opens a session against the time-clock MySQL database.
func NewMySQLGateway(dsn string) (Gateway, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to time-clock database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get time-clock sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &mysqlGateway{db: db}, nil
}

// FetchPunches implements Gateway.
func (g *mysqlGateway) FetchPunches(ctx context.Context, from time.Time) ([]Row, error) {
	var rows []Row
	err := g.db.WithContext(ctx).
		Where("checkdate >= ?", from.Format("2006-01-02")).
		Order("badgenumber, checkdate, checktime").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch punches from time-clock source: %w", err)
	}
	return rows, nil
}
