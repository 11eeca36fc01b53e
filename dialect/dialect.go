// Package dialect 描述各数据库在 DDL 与加锁查询上的差异。
package dialect

import (
	"fmt"
	"strings"

	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/xerrors"
)

// ErrUnsupportedDriver 没有对应方言的驱动
var ErrUnsupportedDriver = xerrors.Wrap(xerrors.ErrInvalidInput, "dialect: unsupported driver")

// Dialect SQL 方言
type Dialect interface {
	// Name 方言名称，与 connector 的驱动名称一致
	Name() string

	// ForUpdate 返回追加在 select 语句末尾的行锁子句，alias 为被锁定表的别名
	//
	// 不支持行锁的方言返回空串，由数据库级写锁保证串行。
	ForUpdate(alias string) string

	CreateTableString() string
	PrimaryKeyString() string
	VarcharType(length int) string
	BigintType() string

	// DropTableString 返回删除表的完整语句
	DropTableString(table string) string
}

// ForDriver 按驱动名称返回方言
func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case connector.DriverMySQL:
		return MySQL, nil
	case connector.DriverPostgreSQL, "postgresql":
		return PostgreSQL, nil
	case connector.DriverSQLite, "sqlite3":
		return SQLite, nil
	default:
		return nil, xerrors.Wrapf(ErrUnsupportedDriver, "driver %q", driver)
	}
}

// Qualify 拼接 catalog.schema.table，跳过空的部分
func Qualify(catalog, schema, table string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{catalog, schema, table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

var (
	MySQL      Dialect = mysql{}
	PostgreSQL Dialect = postgres{}
	SQLite     Dialect = sqlite{}
)

// ansi 各方言共享的默认实现
type ansi struct{}

func (ansi) CreateTableString() string { return "create table" }
func (ansi) PrimaryKeyString() string  { return "primary key" }
func (ansi) BigintType() string        { return "bigint" }

func (ansi) VarcharType(length int) string {
	return fmt.Sprintf("varchar(%d)", length)
}

func (ansi) DropTableString(table string) string {
	return "drop table if exists " + table
}

type mysql struct{ ansi }

func (mysql) Name() string            { return connector.DriverMySQL }
func (mysql) ForUpdate(string) string { return " for update" }

type postgres struct{ ansi }

func (postgres) Name() string { return connector.DriverPostgreSQL }

func (postgres) ForUpdate(alias string) string {
	if alias == "" {
		return " for update"
	}
	return " for update of " + alias
}

func (p postgres) DropTableString(table string) string {
	return p.ansi.DropTableString(table) + " cascade"
}

// sqlite 没有行锁，写事务持有数据库级锁
type sqlite struct{ ansi }

func (sqlite) Name() string            { return connector.DriverSQLite }
func (sqlite) ForUpdate(string) string { return "" }
