package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestGormConfig(t *testing.T) {
	cfg := GormConfig(logger.Warn)
	assert.True(t, cfg.TranslateError, "duplicate payouts are detected through translated errors")
	assert.NotNil(t, cfg.Logger)
}
