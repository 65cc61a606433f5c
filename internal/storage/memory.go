package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// MemoryTable 进程内的 Table 实现，按 gorm 的列名解析结构体字段，供测试和本地调试使用
type MemoryTable[T any] struct {
	mu     sync.Mutex
	rows   []T
	nextID uint64
	sch    *schema.Schema

	// Fail 非空时在每次操作前调用，返回的错误直接作为该操作的结果
	Fail func(op string) error
}

func NewMemoryTable[T any]() *MemoryTable[T] {
	sch, err := schema.Parse(new(T), &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		panic(fmt.Sprintf("storage: parse schema of %T: %v", *new(T), err))
	}
	return &MemoryTable[T]{sch: sch, nextID: 1}
}

// Rows 返回当前全部行的副本
func (m *MemoryTable[T]) Rows() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}

func (m *MemoryTable[T]) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

func (m *MemoryTable[T]) Insert(ctx context.Context, rows []T) (int, error) {
	if err := m.fail("insert"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range rows {
		rv := reflect.ValueOf(&rows[i]).Elem()
		if pk := m.sch.PrioritizedPrimaryField; pk != nil {
			if err := pk.Set(ctx, rv, m.nextID); err != nil {
				return 0, err
			}
			m.nextID++
		}
		for _, f := range m.sch.Fields {
			if f.AutoCreateTime == 0 {
				continue
			}
			if _, zero := f.ValueOf(ctx, rv); zero {
				if err := f.Set(ctx, rv, now); err != nil {
					return 0, err
				}
			}
		}
		m.rows = append(m.rows, rows[i])
	}
	return len(rows), nil
}

func (m *MemoryTable[T]) Select(ctx context.Context, f Filter) ([]T, error) {
	if err := m.fail("select"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []T
	for _, r := range m.rows {
		ok, err := m.match(ctx, r, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	if f.OrderBy == "" {
		return out, nil
	}

	field := m.sch.LookUpField(f.OrderBy)
	if field == nil {
		return nil, fmt.Errorf("unknown column %q", f.OrderBy)
	}
	slices.SortStableFunc(out, func(a, b T) int {
		av, _ := field.ValueOf(ctx, reflect.ValueOf(a))
		bv, _ := field.ValueOf(ctx, reflect.ValueOf(b))
		c, _ := compareValues(av, bv)
		if f.Desc {
			return -c
		}
		return c
	})
	return out, nil
}

func (m *MemoryTable[T]) Delete(ctx context.Context, f Filter) (int64, error) {
	if err := m.fail("delete"); err != nil {
		return 0, err
	}
	if len(f.Conds) == 0 {
		return 0, errors.New("delete without conditions")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		ok, err := m.match(ctx, r, f)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *MemoryTable[T]) Count(ctx context.Context, f Filter) (int64, error) {
	if err := m.fail("count"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, r := range m.rows {
		ok, err := m.match(ctx, r, f)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (m *MemoryTable[T]) match(ctx context.Context, row T, f Filter) (bool, error) {
	rv := reflect.ValueOf(row)
	for _, c := range f.Conds {
		if !c.Op.valid() {
			return false, fmt.Errorf("unsupported operator %q on %s", c.Op, c.Column)
		}
		field := m.sch.LookUpField(c.Column)
		if field == nil {
			return false, fmt.Errorf("unknown column %q", c.Column)
		}
		v, _ := field.ValueOf(ctx, rv)
		cmp, ok := compareValues(v, c.Value)
		if !ok {
			return false, fmt.Errorf("cannot compare column %s (%T) with %T", c.Column, v, c.Value)
		}
		var hit bool
		switch c.Op {
		case OpEq:
			hit = cmp == 0
		case OpGte:
			hit = cmp >= 0
		case OpLte:
			hit = cmp <= 0
		case OpLt:
			hit = cmp < 0
		}
		if !hit {
			return false, nil
		}
	}
	return true, nil
}

// compareValues 只覆盖表里出现的列类型：时间、日期、字符串和数字
func compareValues(a, b any) (int, bool) {
	a, b = normalizeValue(a), normalizeValue(b)
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case datatypes.Date:
		t := time.Time(x)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case *datatypes.Date:
		if x == nil {
			return nil
		}
		return normalizeValue(*x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v
}
