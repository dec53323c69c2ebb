package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/record"
)

type DBModel struct {
	DB *gorm.DB
}

type Model interface {
	record.Log

	ListRecords(network string, kind record.Kind) ([]Record, error)
	LatestRecord(network string, kind record.Kind) (*Record, error)
}

func MakeDB(dbURL string) (*DBModel, error) {
	log.Debug(context.Background(), "starting database", "dbURL", dbURL)
	if !strings.HasPrefix(dbURL, "sqlite://") {
		dbURL = fmt.Sprintf("sqlite://%s", dbURL)
	}
	sqliteSuffix := dbURL[len("sqlite://"):]
	// if this isn't ":memory:", ensure that directory exists (eg, if db
	// file is being initialized)
	if !strings.Contains(sqliteSuffix, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(sqliteSuffix), os.ModePerm); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}
	dial := sqlite.Open(sqliteSuffix)

	gormLogger := slogGorm.New(slogGorm.WithHandler(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.RFC3339,
	})))

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("error starting database: %w", err)
	}
	for _, model := range []any{Record{}} {
		err = db.AutoMigrate(model)
		if err != nil {
			return nil, err
		}
	}
	return &DBModel{DB: db}, nil
}

func (m *DBModel) Close() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
