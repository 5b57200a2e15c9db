package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmview/pharmview/internal/config"
)

func TestCreate(t *testing.T) {
	cfg := &config.Config{
		DB: config.DB{
			Host:     "db.internal",
			Port:     5432,
			User:     "pharmview",
			Password: "secret",
			Name:     "pharmview",
		},
	}

	// Default engine is postgres.
	assert.Equal(t,
		"host=db.internal port=5432 user=pharmview password=secret dbname=pharmview sslmode=disable",
		Create(cfg),
	)

	cfg.DB.SSLMode = "require"
	cfg.DB.Extras = "TimeZone=UTC"
	assert.Equal(t,
		"host=db.internal port=5432 user=pharmview password=secret dbname=pharmview sslmode=require TimeZone=UTC",
		Create(cfg),
	)

	cfg.DB.GormEngine = EngineMySQL
	cfg.DB.Port = 3306
	cfg.DB.Extras = "parseTime=true"
	assert.Equal(t,
		"pharmview:secret@tcp(db.internal:3306)/pharmview?parseTime=true",
		Create(cfg),
	)
}
