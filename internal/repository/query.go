package repository

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchContains
)

type ScopeKind int

const (
	// ScopeOwner binds rows whose user_id is the caller.
	ScopeOwner ScopeKind = iota
	// ScopeOwnedProject binds rows whose project_id is a project the caller owns.
	ScopeOwnedProject
)

type FieldSpec struct {
	Column string
	Match  MatchKind
}

// ResourceSchema describes which query parameters a list endpoint accepts
// and how they map onto columns.
type ResourceSchema struct {
	Name  string
	Table string
	Scope ScopeKind
	// Fields are the filterable query parameters.
	Fields map[string]FieldSpec
	// Sorts maps sort_by values onto columns.
	Sorts map[string]string
}

var ProjectSchema = ResourceSchema{
	Name:  "project",
	Table: "projects",
	Scope: ScopeOwner,
	Fields: map[string]FieldSpec{
		"name":   {Column: "name", Match: MatchContains},
		"id":     {Column: "id", Match: MatchExact},
		"action": {Column: "action", Match: MatchExact},
	},
	Sorts: map[string]string{
		"id":      "id",
		"name":    "name",
		"action":  "action",
		"created": "created_at",
	},
}

var TaskSchema = ResourceSchema{
	Name:  "task",
	Table: "tasks",
	Scope: ScopeOwnedProject,
	Fields: map[string]FieldSpec{
		"title":  {Column: "title", Match: MatchContains},
		"name":   {Column: "name", Match: MatchContains},
		"id":     {Column: "id", Match: MatchExact},
		"action": {Column: "action", Match: MatchExact},
	},
	Sorts: map[string]string{
		"id":      "id",
		"title":   "title",
		"name":    "name",
		"action":  "action",
		"created": "created_at",
		"expiry":  "expiry",
	},
}

func (s ResourceSchema) SortColumn(sortBy string) (string, bool) {
	col, ok := s.Sorts[sortBy]
	return col, ok
}

func (s ResourceSchema) column(col string) string {
	return s.Table + "." + col
}

// OwnerScope is derived from the authenticated identity, never from user input.
type OwnerScope struct {
	OwnerID   string
	ProjectID string
}

func (s OwnerScope) validate(kind ScopeKind) error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrMissingScope
	}
	if kind == ScopeOwnedProject && strings.TrimSpace(s.ProjectID) == "" {
		return ErrMissingScope
	}
	return nil
}

func (s OwnerScope) apply(db *gorm.DB, schema ResourceSchema) *gorm.DB {
	switch schema.Scope {
	case ScopeOwnedProject:
		return db.
			Where(schema.column("project_id")+" = ?", s.ProjectID).
			Where(schema.column("project_id")+" IN (SELECT id FROM projects WHERE user_id = ?)", s.OwnerID)
	default:
		return db.Where(schema.column("user_id")+" = ?", s.OwnerID)
	}
}

// FilterValue is one optional list filter. Set separates an explicit false or
// "0" from a parameter that was never sent.
type FilterValue struct {
	Value any
	Set   bool
}

func Some(v any) FilterValue { return FilterValue{Value: v, Set: true} }

type FieldValues map[string]FilterValue

type Operator string

const (
	OpEquals   Operator = "eq"
	OpContains Operator = "contains"
)

type Clause struct {
	Field  string
	Column string
	Op     Operator
	Value  any
}

// Filter is the store-level predicate for one list request: the ownership
// scope plus zero or more field clauses.
type Filter struct {
	Schema  ResourceSchema
	Scope   OwnerScope
	Clauses []Clause
}

// BuildFilter turns sparse field values into a Filter. Fields that were not
// sent, or were sent as an empty string, emit no clause. The ownership scope
// is mandatory and is applied to every query built from the result.
func BuildFilter(schema ResourceSchema, scope OwnerScope, values FieldValues) (Filter, error) {
	if err := scope.validate(schema.Scope); err != nil {
		return Filter{}, err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	f := Filter{Schema: schema, Scope: scope}
	for _, name := range names {
		fv := values[name]
		if !fv.Set || isEmptyValue(fv.Value) {
			continue
		}
		spec, ok := schema.Fields[name]
		if !ok {
			return Filter{}, fmt.Errorf("%w: %s", ErrUnknownFilterField, name)
		}
		c := Clause{Field: name, Column: spec.Column, Op: OpEquals, Value: derefValue(fv.Value)}
		if spec.Match == MatchContains {
			c.Op = OpContains
			c.Value = fmt.Sprint(c.Value)
		}
		f.Clauses = append(f.Clauses, c)
	}
	return f, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case *string:
		return t == nil || strings.TrimSpace(*t) == ""
	case *bool:
		return t == nil
	default:
		return false
	}
}

// Apply adds the scope and every clause to db. db must already target the
// schema's table.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	q := f.Scope.apply(db, f.Schema)
	for _, c := range f.Clauses {
		col := f.Schema.column(c.Column)
		switch c.Op {
		case OpContains:
			q = q.Where("LOWER("+col+") LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(c.Value.(string)))+"%")
		default:
			q = q.Where(col+" = ?", c.Value)
		}
	}
	return q
}

func derefValue(v any) any {
	switch t := v.(type) {
	case *string:
		return *t
	case *bool:
		return *t
	default:
		return v
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
