package db

import (
	"log"
	"strings"

	"concierge/config"
	"concierge/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var conf config.Configuration

func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

// Connect opens the event ledger (in-memory sqlite3 by default) and migrates it.
func Connect() (*gorm.DB, error) {
	database := strings.ToLower(strings.TrimSpace(conf.Database))
	if database == "" {
		database = "sqlite3"
	}

	var (
		db  *gorm.DB
		err error
	)

	if database == "postgres" || database == "postgresql" {
		log.Println("Using postgresql ledger...")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass + " sslmode=disable"
		db, err = gorm.Open("postgres", path)
	} else {
		path := conf.DbPath
		if path == "" {
			path = "file::memory:?cache=shared"
		}
		log.Printf("Using sqlite3 ledger at %s...", path)
		db, err = gorm.Open("sqlite3", path)
		if err == nil {
			// sqlite serializes writers; one connection avoids "database is locked"
			db.DB().SetMaxOpenConns(1)
		}
	}

	if err != nil {
		log.Println("Got error when connect database, the error is: " + err.Error())
		return nil, err
	}

	db.LogMode(false)

	if err := db.AutoMigrate(&models.Event{}).Error; err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
