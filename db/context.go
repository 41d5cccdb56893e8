package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const (
	dbKey     = "db"
	ledgerKey = "ledger"
)

// SetDBtoContext exposes the ledger database and its Ledger to handlers.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	ledger := NewLedger(database)
	return func(c *gin.Context) {
		c.Set(dbKey, database)
		c.Set(ledgerKey, ledger)
		c.Next()
	}
}

func DBInstance(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

func LedgerInstance(c *gin.Context) *Ledger {
	v, ok := c.Get(ledgerKey)
	if !ok {
		return nil
	}
	l, _ := v.(*Ledger)
	return l
}
