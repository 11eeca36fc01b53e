package connector

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/xerrors"
)

// DriverSQLite SQLite 驱动名称，与 gorm Dialector.Name() 一致
const DriverSQLite = "sqlite"

// NewSQLite 创建 SQLite 连接器，实际连接在 Connect 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := cfg.Path
	maxOpen := cfg.MaxOpenConns
	return newGormConnector(cfg.Name, DriverSQLite,
		func() gorm.Dialector { return sqlite.Open(path) },
		func(db *gorm.DB) error {
			if maxOpen == 0 {
				return nil
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxOpenConns(maxOpen)
			return nil
		},
		applyOptions(opts),
	), nil
}
