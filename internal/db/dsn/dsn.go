// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/pharmview/pharmview/internal/config"
)

// EngineMySQL selects the MySQL gorm driver.
const EngineMySQL = "mysql"

// EnginePostgres selects the Postgres gorm driver. It is the default.
const EnginePostgres = "postgres"

// Create builds the Data Source Name from the configuration, in the shape
// the configured gorm engine expects.
func Create(dbCfg *config.Config) string {
	if strings.EqualFold(dbCfg.DB.GormEngine, EngineMySQL) {
		return mysqlDSN(dbCfg)
	}

	return postgresDSN(dbCfg)
}

func mysqlDSN(dbCfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)
}

func postgresDSN(dbCfg *config.Config) string {
	sslMode := dbCfg.DB.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Name,
		sslMode,
	)

	if dbCfg.DB.Extras != "" {
		out += " " + dbCfg.DB.Extras
	}

	return out
}
