package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTable 基于 gorm 的 Table 实现
type GormTable[T any] struct {
	db *gorm.DB
}

func NewGormTable[T any](db *gorm.DB) *GormTable[T] {
	return &GormTable[T]{db: db}
}

func (t *GormTable[T]) scoped(ctx context.Context, f Filter) *gorm.DB {
	q := t.db.WithContext(ctx).Model(new(T))
	for _, c := range f.Conds {
		if !c.Op.valid() {
			_ = q.AddError(fmt.Errorf("unsupported operator %q on %s", c.Op, c.Column))
			return q
		}
		q = q.Where(fmt.Sprintf("%s %s ?", c.Column, c.Op), c.Value)
	}
	if f.OrderBy != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: f.OrderBy}, Desc: f.Desc})
	}
	return q
}

func (t *GormTable[T]) Insert(ctx context.Context, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := t.db.WithContext(ctx).Create(&rows)
	return int(res.RowsAffected), res.Error
}

func (t *GormTable[T]) Select(ctx context.Context, f Filter) ([]T, error) {
	var out []T
	if err := t.scoped(ctx, f).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 没有任何条件时 gorm 会拒绝执行（ErrMissingWhereClause）
func (t *GormTable[T]) Delete(ctx context.Context, f Filter) (int64, error) {
	res := t.scoped(ctx, f).Delete(new(T))
	return res.RowsAffected, res.Error
}

func (t *GormTable[T]) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := t.scoped(ctx, f).Count(&n).Error
	return n, err
}
