package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Connect opens a gorm handle. DSNs with a tcp() host go to MySQL;
// everything else (file: URIs, plain paths, :memory:) goes to sqlite.
func Connect(dsn string) (*gorm.DB, error) {
	if strings.Contains(dsn, "@tcp(") {
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}
