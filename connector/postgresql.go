package connector

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/xerrors"
)

// DriverPostgreSQL PostgreSQL 驱动名称，与 gorm Dialector.Name() 一致
const DriverPostgreSQL = "postgres"

// NewPostgreSQL 创建 PostgreSQL 连接器，实际连接在 Connect 时建立
func NewPostgreSQL(cfg *PostgreSQLConfig, opts ...Option) (PostgreSQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "postgresql config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dsn := cfg.dsn()
	return newGormConnector(cfg.Name, DriverPostgreSQL,
		func() gorm.Dialector { return postgres.Open(dsn) },
		poolConfigurer(cfg.PoolConfig),
		applyOptions(opts),
	), nil
}
