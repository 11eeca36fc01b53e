package connector

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/xerrors"
)

// DriverMySQL MySQL 驱动名称，与 gorm Dialector.Name() 一致
const DriverMySQL = "mysql"

// NewMySQL 创建 MySQL 连接器，实际连接在 Connect 时建立
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dsn := cfg.dsn()
	return newGormConnector(cfg.Name, DriverMySQL,
		func() gorm.Dialector { return mysql.Open(dsn) },
		poolConfigurer(cfg.PoolConfig),
		applyOptions(opts),
	), nil
}
