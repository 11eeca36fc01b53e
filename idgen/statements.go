package idgen

import (
	"fmt"

	"github.com/ceyewan/tablegen/dialect"
)

const tableAlias = "tbl"

// statements 构造时生成一次的 SQL 模板
type statements struct {
	selectSQL string
	insertSQL string
	updateSQL string
}

func buildStatements(cfg *TableConfig, d dialect.Dialect) statements {
	return statements{
		selectSQL: fmt.Sprintf("select %s.%s from %s %s where %s.%s = ?",
			tableAlias, cfg.ValueColumn, cfg.TableName, tableAlias, tableAlias, cfg.SegmentColumn,
		) + d.ForUpdate(tableAlias),
		insertSQL: fmt.Sprintf("insert into %s (%s, %s) values (?, ?)",
			cfg.TableName, cfg.SegmentColumn, cfg.ValueColumn),
		updateSQL: fmt.Sprintf("update %s set %s = ? where %s = ? and %s = ?",
			cfg.TableName, cfg.ValueColumn, cfg.ValueColumn, cfg.SegmentColumn),
	}
}

func createStatements(cfg *TableConfig, d dialect.Dialect) []string {
	return []string{fmt.Sprintf("%s %s (%s %s not null, %s %s, %s (%s))",
		d.CreateTableString(), cfg.TableName,
		cfg.SegmentColumn, d.VarcharType(cfg.SegmentValueLength),
		cfg.ValueColumn, d.BigintType(),
		d.PrimaryKeyString(), cfg.SegmentColumn,
	)}
}

func dropStatements(cfg *TableConfig, d dialect.Dialect) []string {
	return []string{d.DropTableString(cfg.TableName)}
}
