package persistence

import (
	"fmt"

	"github.com/wfunc/partyroom/config"
)

const (
	DriverNone     = ""
	DriverGorm     = "gorm"
	DriverPostgres = "postgres"
)

// Open 按配置选择实现，driver 为空时使用内存实现
func Open(cfg config.DatabaseConfig) (Recorder, error) {
	switch cfg.Driver {
	case DriverNone, "memory":
		return NewMemoryRecorder(), nil
	case DriverGorm:
		return NewGormRecorder(cfg.Postgres.DSN())
	case DriverPostgres:
		return NewSQLRecorder(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
