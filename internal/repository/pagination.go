package repository

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
	DefaultSortBy  = "id"
	SortAsc        = "asc"
	SortDesc       = "desc"
)

type ListQuery struct {
	Page    int
	PerPage int
	SortBy  string
	Order   string
}

func DefaultListQuery() ListQuery {
	return ListQuery{Page: DefaultPage, PerPage: DefaultPerPage, SortBy: DefaultSortBy, Order: SortAsc}
}

type PageResult[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
}

// Validate reports every problem with q against schema as one ErrInvalidListQuery.
func (q ListQuery) Validate(schema ResourceSchema) error {
	var problems []string
	if q.Page < 1 {
		problems = append(problems, "page must be >= 1")
	}
	if q.PerPage < 1 || q.PerPage > MaxPerPage {
		problems = append(problems, fmt.Sprintf("per_page must be between 1 and %d", MaxPerPage))
	}
	if _, ok := schema.SortColumn(q.SortBy); !ok {
		problems = append(problems, "sort_by is not sortable: "+q.SortBy)
	}
	if q.Order != SortAsc && q.Order != SortDesc {
		problems = append(problems, "order must be asc or desc")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidListQuery, strings.Join(problems, "; "))
	}
	return nil
}

// offset reports false when the page starts beyond any representable row.
func (q ListQuery) offset() (int, bool) {
	if q.Page-1 > math.MaxInt/q.PerPage {
		return 0, false
	}
	return (q.Page - 1) * q.PerPage, true
}

// ExecuteList runs the page query and an exact count against the same filter.
// Rows that tie on the sort column are ordered by id in the same direction.
// A page past the last row, however large, yields no items.
func ExecuteList[T any](ctx context.Context, db *gorm.DB, filter Filter, q ListQuery) (PageResult[T], error) {
	schema := filter.Schema
	if err := filter.Scope.validate(schema.Scope); err != nil {
		return PageResult[T]{}, err
	}
	if err := q.Validate(schema); err != nil {
		return PageResult[T]{}, err
	}
	sortCol, _ := schema.SortColumn(q.SortBy)
	desc := q.Order == SortDesc

	scoped := func() *gorm.DB {
		return filter.Apply(db.WithContext(ctx).Table(schema.Table))
	}

	result := PageResult[T]{Page: q.Page, PerPage: q.PerPage, Items: []T{}}
	if err := scoped().Count(&result.Total).Error; err != nil {
		return PageResult[T]{}, fmt.Errorf("count %s: %w", schema.Table, err)
	}

	offset, ok := q.offset()
	if !ok {
		result.TotalPages = calcTotalPages(result.Total, q.PerPage)
		return result, nil
	}

	order := scoped().Order(clause.OrderByColumn{Column: clause.Column{Table: schema.Table, Name: sortCol}, Desc: desc})
	if sortCol != "id" {
		order = order.Order(clause.OrderByColumn{Column: clause.Column{Table: schema.Table, Name: "id"}, Desc: desc})
	}
	if err := order.Offset(offset).Limit(q.PerPage).Find(&result.Items).Error; err != nil {
		return PageResult[T]{}, fmt.Errorf("list %s: %w", schema.Table, err)
	}
	result.TotalPages = calcTotalPages(result.Total, q.PerPage)
	return result, nil
}

func calcTotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}
