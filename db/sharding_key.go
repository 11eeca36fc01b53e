package db

import (
	"gorm.io/gorm"

	"github.com/ceyewan/tablegen/xerrors"
)

// keyAllocError 主键回调中止写入时携带的错误
type keyAllocError struct {
	err error
}

// keyErrorPlugin 把主键分配失败从 panic 转回语句错误
//
// gorm.io/sharding 在 ConnPool 层改写 INSERT 时调用主键回调，
// 这几个回调是语句真正到达连接池的位置。
type keyErrorPlugin struct{}

func (keyErrorPlugin) Name() string {
	return "tablegen:sharding_key_error"
}

func (keyErrorPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	processors := map[string]interface {
		Get(name string) func(*gorm.DB)
		Replace(name string, fn func(*gorm.DB)) error
	}{
		"gorm:create": cb.Create(),
		"gorm:query":  cb.Query(),
		"gorm:row":    cb.Row(),
		"gorm:raw":    cb.Raw(),
	}
	for name, p := range processors {
		fn := p.Get(name)
		if fn == nil {
			continue
		}
		if err := p.Replace(name, recoverKeyError(fn)); err != nil {
			return xerrors.Wrapf(err, "replace callback %s", name)
		}
	}
	return nil
}

func recoverKeyError(fn func(*gorm.DB)) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		defer func() {
			if r := recover(); r != nil {
				ke, ok := r.(keyAllocError)
				if !ok {
					panic(r)
				}
				_ = tx.AddError(ke.err)
			}
		}()
		fn(tx)
	}
}
