package client

import (
	"log"
	"time"

	"examprep-billing/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDBClient opens MySQL when a DSN is configured, sqlite otherwise.
func InitDBClient(databaseURL, sqlitePath string) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)

	cfg := &gorm.Config{TranslateError: true}
	if databaseURL != "" {
		db, err = gorm.Open(mysql.Open(databaseURL), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	}
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}

	// Connection pool (important for webhooks)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		log.Fatal(err)
	}

	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.CatalogItem{},
		&model.User{},
		&model.Purchase{},
		&model.Coupon{},
		&model.CheckoutSession{},
		&model.SessionLineItem{},
		&model.ProcessedTransaction{},
		&model.Forum{},
		&model.SubjectProgress{},
	)
}
