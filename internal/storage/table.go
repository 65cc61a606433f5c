package storage

import "context"

// Op 支持的比较运算
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
	OpLt  Op = "<"
)

func (o Op) valid() bool {
	switch o {
	case OpEq, OpGte, OpLte, OpLt:
		return true
	}
	return false
}

type Cond struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Cond  { return Cond{Column: col, Op: OpEq, Value: v} }
func Gte(col string, v any) Cond { return Cond{Column: col, Op: OpGte, Value: v} }
func Lte(col string, v any) Cond { return Cond{Column: col, Op: OpLte, Value: v} }
func Lt(col string, v any) Cond  { return Cond{Column: col, Op: OpLt, Value: v} }

// Filter 条件之间为 AND，可选一个排序列
type Filter struct {
	Conds   []Cond
	OrderBy string
	Desc    bool
}

func Where(conds ...Cond) Filter {
	return Filter{Conds: conds}
}

func (f Filter) Order(col string, desc bool) Filter {
	f.OrderBy = col
	f.Desc = desc
	return f
}

// Table 存储层对外暴露的最小能力，Gateway 只依赖它
type Table[T any] interface {
	Insert(ctx context.Context, rows []T) (int, error)
	Select(ctx context.Context, f Filter) ([]T, error)
	Delete(ctx context.Context, f Filter) (int64, error)
	Count(ctx context.Context, f Filter) (int64, error)
}
