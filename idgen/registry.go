package idgen

import (
	"context"
	"slices"
	"sort"

	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/xerrors"
)

// MaxBatchSize GenerateN 单次允许的最大数量
const MaxBatchSize = 1000

// EntityGenerator Registry 管理的生成器
type EntityGenerator interface {
	Generator
	Config() TableConfig
	AccessCount() int64
	Optimizer() Optimizer
	GeneratorKey() string
}

type schemaManager interface {
	EnsureSchema(ctx context.Context) (bool, error)
	SchemaCreateStatements() []string
	SchemaDropStatements() []string
}

var (
	_ EntityGenerator = (*TableGenerator)(nil)
	_ EntityGenerator = (*SegmentGenerator)(nil)
)

// Registry 按实体名称管理生成器
//
// 实体名称默认作为 target_table，配合 prefer_entity_table_as_segment_value
// 可以让每个实体使用独立的段。
type Registry struct {
	generators map[string]EntityGenerator
}

// BuildFunc 为单个实体创建生成器
type BuildFunc func(idType IdentifierType, params Params) (EntityGenerator, error)

// NewRegistry 为每个实体调用 build，identifier_type 参数决定标识符类型
func NewRegistry(entities map[string]Params, build BuildFunc) (*Registry, error) {
	r := &Registry{generators: make(map[string]EntityGenerator, len(entities))}
	for entity, params := range entities {
		if entity == "" {
			return nil, configError(CodeInvalidParam, "entity name must not be empty")
		}
		p := params.Clone()
		if !p.Has(ParamTargetTable) {
			p[ParamTargetTable] = entity
		}
		typeName, err := p.String(ParamIdentifierType, "")
		if err != nil {
			return nil, xerrors.Wrapf(err, "entity %s", entity)
		}
		idType, err := ParseIdentifierType(typeName)
		if err != nil {
			return nil, xerrors.Wrapf(err, "entity %s", entity)
		}
		gen, err := build(idType, p)
		if err != nil {
			return nil, xerrors.Wrapf(err, "entity %s", entity)
		}
		r.generators[entity] = gen
	}
	return r, nil
}

// NewTableRegistry 所有实体共用同一个数据库组件
func NewTableRegistry(database db.DB, entities map[string]Params, opts ...Option) (*Registry, error) {
	return NewRegistry(entities, func(idType IdentifierType, params Params) (EntityGenerator, error) {
		return NewTableGenerator(database, idType, params, opts...)
	})
}

// NewEtcdRegistry 所有实体共用同一个 etcd 连接
func NewEtcdRegistry(conn connector.EtcdConnector, entities map[string]Params, opts ...Option) (*Registry, error) {
	return NewRegistry(entities, func(idType IdentifierType, params Params) (EntityGenerator, error) {
		return NewEtcdGenerator(conn, idType, params, opts...)
	})
}

// NewRedisRegistry 所有实体共用同一个 Redis 连接
func NewRedisRegistry(conn connector.RedisConnector, entities map[string]Params, opts ...Option) (*Registry, error) {
	return NewRegistry(entities, func(idType IdentifierType, params Params) (EntityGenerator, error) {
		return NewRedisGenerator(conn, idType, params, opts...)
	})
}

// Get 返回实体的生成器
func (r *Registry) Get(entity string) (EntityGenerator, error) {
	gen, ok := r.generators[entity]
	if !ok {
		return nil, xerrors.Wrapf(ErrUnknownEntity, "entity %q", entity)
	}
	return gen, nil
}

// Generate 为实体生成一个标识符
func (r *Registry) Generate(ctx context.Context, entity string) (int64, error) {
	gen, err := r.Get(entity)
	if err != nil {
		return 0, err
	}
	return gen.Generate(ctx)
}

// GenerateN 为实体依次生成 n 个标识符，出错时丢弃已生成的部分
func (r *Registry) GenerateN(ctx context.Context, entity string, n int) ([]int64, error) {
	if n < 1 || n > MaxBatchSize {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "count must be in [1, %d], got %d", MaxBatchSize, n)
	}
	gen, err := r.Get(entity)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, n)
	for range n {
		id, err := gen.Generate(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Names 按字母序返回所有实体名称
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureSchema 为所有表生成器建表，同一张表只处理一次
func (r *Registry) EnsureSchema(ctx context.Context) error {
	var seen []string
	for _, name := range r.Names() {
		gen := r.generators[name]
		manager, ok := gen.(schemaManager)
		if !ok || slices.Contains(seen, gen.GeneratorKey()) {
			continue
		}
		seen = append(seen, gen.GeneratorKey())
		if _, err := manager.EnsureSchema(ctx); err != nil {
			return xerrors.Wrapf(err, "entity %s", name)
		}
	}
	return nil
}

// SchemaCreateStatements 汇总所有表的建表语句，同一张表只出现一次
func (r *Registry) SchemaCreateStatements() []string {
	return r.collectStatements(func(m schemaManager) []string { return m.SchemaCreateStatements() })
}

// SchemaDropStatements 汇总所有表的删表语句
func (r *Registry) SchemaDropStatements() []string {
	return r.collectStatements(func(m schemaManager) []string { return m.SchemaDropStatements() })
}

func (r *Registry) collectStatements(fn func(schemaManager) []string) []string {
	var (
		seen  []string
		stmts []string
	)
	for _, name := range r.Names() {
		gen := r.generators[name]
		manager, ok := gen.(schemaManager)
		if !ok || slices.Contains(seen, gen.GeneratorKey()) {
			continue
		}
		seen = append(seen, gen.GeneratorKey())
		stmts = append(stmts, fn(manager)...)
	}
	return stmts
}
