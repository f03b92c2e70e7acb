// Package policy decides who may read an article.
//
// A Rule is computed once per principal and is the only place the access
// logic lives: Allows evaluates it against one loaded article, Scope turns
// the very same terms into a WHERE clause for bulk listing. Adding a term
// means adding both its match and its SQL in this file.
package policy

import (
	"fmt"
	"strings"

	"kb-portal/models"

	"gorm.io/gorm"
)

// Principal is the caller of a request. A nil *Principal is anonymous.
type Principal struct {
	UserID       uint
	Role         models.UserRole
	DivisionID   *uint
	DepartmentID *uint
}

func PrincipalOf(u *models.User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{
		UserID:       u.ID,
		Role:         u.Role,
		DivisionID:   u.DivisionID,
		DepartmentID: u.DepartmentID,
	}
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// CanAuthor reports whether the principal may create articles.
func (p *Principal) CanAuthor() bool {
	return p != nil && (p.Role == models.RoleAdmin || p.Role == models.RoleEditor)
}

// CanManage reports whether the principal may change or delete a.
func (p *Principal) CanManage(a *models.Article) bool {
	return p != nil && (p.Role == models.RoleAdmin || p.UserID == a.AuthorID)
}

// Subject is the article side of an access decision.
type Subject struct {
	Visibility    models.Visibility
	AuthorID      uint
	DivisionIDs   []uint
	DepartmentIDs []uint
}

// SubjectOf expects Divisions and Departments to be loaded.
func SubjectOf(a *models.Article) Subject {
	return Subject{
		Visibility:    a.Visibility,
		AuthorID:      a.AuthorID,
		DivisionIDs:   models.OrgUnitIDs(a.Divisions),
		DepartmentIDs: models.OrgUnitIDs(a.Departments),
	}
}

type termKind int

const (
	termEverything termKind = iota
	termPublic
	termAuthor
	termUnrestricted
	termDivision
	termDepartment
)

type term struct {
	kind termKind
	id   uint
}

// Rule is a disjunction of terms; an article is readable when any term holds.
type Rule struct {
	terms []term
}

// For builds the rule for p.
//
// Private articles with both allow-lists empty are readable by every
// authenticated principal. Existing data relies on that, so it is kept.
func For(p *Principal) Rule {
	if p == nil {
		return Rule{terms: []term{{kind: termPublic}}}
	}
	if p.IsAdmin() {
		return Rule{terms: []term{{kind: termEverything}}}
	}
	terms := []term{
		{kind: termPublic},
		{kind: termAuthor, id: p.UserID},
		{kind: termUnrestricted},
	}
	if p.DivisionID != nil {
		terms = append(terms, term{kind: termDivision, id: *p.DivisionID})
	}
	if p.DepartmentID != nil {
		terms = append(terms, term{kind: termDepartment, id: *p.DepartmentID})
	}
	return Rule{terms: terms}
}

// CanAccess is the single-article form of the rule.
func CanAccess(a *models.Article, p *Principal) bool {
	return For(p).Allows(SubjectOf(a))
}

func (r Rule) Allows(s Subject) bool {
	for _, t := range r.terms {
		if t.matches(s) {
			return true
		}
	}
	return false
}

// Unrestricted reports whether the rule admits every article.
func (r Rule) Unrestricted() bool {
	for _, t := range r.terms {
		if t.kind == termEverything {
			return true
		}
	}
	return false
}

// Scope restricts a query over the articles table to the rows the rule allows.
func (r Rule) Scope(db *gorm.DB) *gorm.DB {
	if r.Unrestricted() {
		return db
	}
	parts := make([]string, 0, len(r.terms))
	vars := make([]interface{}, 0, len(r.terms))
	for _, t := range r.terms {
		sql, args := t.sql()
		parts = append(parts, "("+sql+")")
		vars = append(vars, args...)
	}
	if len(parts) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where(strings.Join(parts, " OR "), vars...)
}

func (t term) matches(s Subject) bool {
	switch t.kind {
	case termEverything:
		return true
	case termPublic:
		return s.Visibility == models.VisibilityPublic
	case termAuthor:
		return s.AuthorID == t.id
	case termUnrestricted:
		return len(s.DivisionIDs) == 0 && len(s.DepartmentIDs) == 0
	case termDivision:
		return containsID(s.DivisionIDs, t.id)
	case termDepartment:
		return containsID(s.DepartmentIDs, t.id)
	}
	return false
}

func (t term) sql() (string, []interface{}) {
	a := models.ArticlesTable
	switch t.kind {
	case termEverything:
		return "1 = 1", nil
	case termPublic:
		return a + ".visibility = ?", []interface{}{models.VisibilityPublic}
	case termAuthor:
		return a + ".author_id = ?", []interface{}{t.id}
	case termUnrestricted:
		return fmt.Sprintf("NOT EXISTS (%s) AND NOT EXISTS (%s)",
			grantSubquery(models.ArticleDivisionsTable, false),
			grantSubquery(models.ArticleDepartmentsTable, false)), nil
	case termDivision:
		return "EXISTS (" + grantSubquery(models.ArticleDivisionsTable, true) + ")", []interface{}{t.id}
	case termDepartment:
		return "EXISTS (" + grantSubquery(models.ArticleDepartmentsTable, true) + ")", []interface{}{t.id}
	}
	return "1 = 0", nil
}

func grantSubquery(table string, withUnit bool) string {
	q := fmt.Sprintf("SELECT 1 FROM %[1]s WHERE %[1]s.article_id = %[2]s.id", table, models.ArticlesTable)
	if withUnit {
		q += fmt.Sprintf(" AND %s.org_unit_id = ?", table)
	}
	return q
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Denial builds the explanation shown when a read is refused.
func Denial(a *models.Article) *models.AccessDenied {
	return &models.AccessDenied{
		Visibility:             a.Visibility,
		AllowedDivisionNames:   models.OrgUnitNames(a.Divisions),
		AllowedDepartmentNames: models.OrgUnitNames(a.Departments),
	}
}
