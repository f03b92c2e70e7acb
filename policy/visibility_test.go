package policy_test

import (
	"sort"
	"testing"

	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintp(v uint) *uint { return &v }

func TestCanAccess(t *testing.T) {
	finance := models.OrgUnit{ID: 1, Name: "Finance", Type: models.OrgUnitDivision}
	audit := models.OrgUnit{ID: 2, Name: "Audit", Type: models.OrgUnitDepartment}

	public := &models.Article{Visibility: models.VisibilityPublic, AuthorID: 9}
	openPrivate := &models.Article{Visibility: models.VisibilityPrivate, AuthorID: 9}
	financeOnly := &models.Article{Visibility: models.VisibilityPrivate, AuthorID: 9, Divisions: []models.OrgUnit{finance}}
	auditOnly := &models.Article{Visibility: models.VisibilityPrivate, AuthorID: 9, Departments: []models.OrgUnit{audit}}

	anonymous := (*policy.Principal)(nil)
	admin := &policy.Principal{UserID: 1, Role: models.RoleAdmin}
	author := &policy.Principal{UserID: 9, Role: models.RoleEditor}
	financeUser := &policy.Principal{UserID: 3, Role: models.RoleUser, DivisionID: uintp(1)}
	auditUser := &policy.Principal{UserID: 4, Role: models.RoleUser, DepartmentID: uintp(2)}
	outsider := &policy.Principal{UserID: 5, Role: models.RoleUser, DivisionID: uintp(7)}

	tests := []struct {
		name      string
		article   *models.Article
		principal *policy.Principal
		want      bool
	}{
		{"public for anonymous", public, anonymous, true},
		{"private for anonymous", openPrivate, anonymous, false},
		{"restricted for anonymous", financeOnly, anonymous, false},
		{"admin reads everything", financeOnly, admin, true},
		{"author reads own", auditOnly, author, true},
		{"private without lists is open to users", openPrivate, outsider, true},
		{"division member", financeOnly, financeUser, true},
		{"department member", auditOnly, auditUser, true},
		{"other division", financeOnly, outsider, false},
		{"department user on division list", financeOnly, auditUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanAccess(tt.article, tt.principal))
		})
	}
}

func TestPrincipalRoles(t *testing.T) {
	var anon *policy.Principal
	assert.False(t, anon.IsAdmin())
	assert.False(t, anon.CanAuthor())
	assert.False(t, anon.CanManage(&models.Article{AuthorID: 1}))

	editor := policy.PrincipalOf(&models.User{ID: 4, Role: models.RoleEditor})
	assert.True(t, editor.CanAuthor())
	assert.True(t, editor.CanManage(&models.Article{AuthorID: 4}))
	assert.False(t, editor.CanManage(&models.Article{AuthorID: 5}))

	assert.Nil(t, policy.PrincipalOf(nil))
}

func TestDenialCarriesOnlyNames(t *testing.T) {
	a := &models.Article{
		Title:       "Secret",
		Content:     "body",
		Visibility:  models.VisibilityPrivate,
		Divisions:   []models.OrgUnit{{Name: "Finance"}},
		Departments: []models.OrgUnit{{Name: "Audit"}, {Name: "Tax"}},
	}
	d := policy.Denial(a)
	assert.Equal(t, models.VisibilityPrivate, d.Visibility)
	assert.Equal(t, []string{"Finance"}, d.AllowedDivisionNames)
	assert.Equal(t, []string{"Audit", "Tax"}, d.AllowedDepartmentNames)
}

// The query filter and the single-article check must agree for every
// principal on every article.
func TestScopeMatchesAllows(t *testing.T) {
	db := testdb.Open(t)

	units := []models.OrgUnit{
		{Name: "Finance", Type: models.OrgUnitDivision},
		{Name: "Operations", Type: models.OrgUnitDivision},
		{Name: "Audit", Type: models.OrgUnitDepartment},
		{Name: "Payroll", Type: models.OrgUnitDepartment},
	}
	require.NoError(t, db.Create(&units).Error)
	finance, ops, audit, payroll := units[0], units[1], units[2], units[3]

	category := models.Category{Name: "General", Slug: "general"}
	require.NoError(t, db.Create(&category).Error)

	authorA := models.User{Name: "Author A", Email: "a@example.com", Password: "x", Role: models.RoleEditor}
	authorB := models.User{Name: "Author B", Email: "b@example.com", Password: "x", Role: models.RoleEditor}
	require.NoError(t, db.Create(&authorA).Error)
	require.NoError(t, db.Create(&authorB).Error)

	specs := []struct {
		visibility  models.Visibility
		author      uint
		divisions   []models.OrgUnit
		departments []models.OrgUnit
	}{
		{models.VisibilityPublic, authorA.ID, nil, nil},
		{models.VisibilityPrivate, authorA.ID, nil, nil},
		{models.VisibilityPrivate, authorA.ID, []models.OrgUnit{finance}, nil},
		{models.VisibilityPrivate, authorB.ID, []models.OrgUnit{ops}, nil},
		{models.VisibilityPrivate, authorB.ID, nil, []models.OrgUnit{audit}},
		{models.VisibilityPrivate, authorB.ID, []models.OrgUnit{finance, ops}, []models.OrgUnit{payroll}},
		{models.VisibilityPrivate, authorA.ID, []models.OrgUnit{ops}, []models.OrgUnit{audit}},
	}
	for i, s := range specs {
		a := models.Article{
			Title:       "Article",
			Slug:        "article-" + string(rune('a'+i)),
			Type:        models.TypeSOP,
			Status:      models.StatusPublished,
			Visibility:  s.visibility,
			CategoryID:  category.ID,
			AuthorID:    s.author,
			Divisions:   s.divisions,
			Departments: s.departments,
		}
		require.NoError(t, db.Create(&a).Error)
	}

	var articles []models.Article
	require.NoError(t, db.Preload("Divisions").Preload("Departments").Find(&articles).Error)
	require.Len(t, articles, len(specs))

	principals := []*policy.Principal{
		nil,
		{UserID: 99, Role: models.RoleAdmin},
		{UserID: authorA.ID, Role: models.RoleEditor},
		{UserID: 50, Role: models.RoleUser},
		{UserID: 51, Role: models.RoleUser, DivisionID: uintp(finance.ID)},
		{UserID: 52, Role: models.RoleUser, DivisionID: uintp(ops.ID), DepartmentID: uintp(audit.ID)},
		{UserID: 53, Role: models.RoleUser, DepartmentID: uintp(payroll.ID)},
		{UserID: authorB.ID, Role: models.RoleEditor, DivisionID: uintp(finance.ID)},
	}

	for _, p := range principals {
		rule := policy.For(p)

		var want []uint
		for i := range articles {
			if rule.Allows(policy.SubjectOf(&articles[i])) {
				want = append(want, articles[i].ID)
			}
		}

		var got []uint
		require.NoError(t, db.Model(&models.Article{}).Scopes(rule.Scope).Order("articles.id").Pluck("articles.id", &got).Error)

		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
		assert.Equal(t, want, got, "principal %+v", p)
	}
}
