package helper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const slugMaxLen = 200

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphen   = regexp.MustCompile(`-+`)
	reCamel    = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Slugify lowercases s, strips diacritics and keeps [a-z0-9-].
// An input with nothing usable becomes "item".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var buf []rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		buf = append(buf, r)
	}
	s = string(buf)

	s = reNonAlnum.ReplaceAllString(s, "-")
	s = reHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if rs := []rune(s); len(rs) > slugMaxLen {
		s = strings.Trim(string(rs[:slugMaxLen]), "-")
	}
	if s == "" {
		s = "item"
	}
	return s
}

// EnsureUniqueSlug returns base, or base with the first free "-N" suffix, so
// that no row of table has it in column. Soft-deleted rows count as taken
// since the unique index still covers them. exceptID skips the row being
// renamed.
func EnsureUniqueSlug(ctx context.Context, db *gorm.DB, table, column, base string, exceptID uint) (string, error) {
	slug := base
	for i := 0; i < 50; i++ {
		q := db.WithContext(ctx).Table(table).Where(column+" = ?", slug)
		if exceptID > 0 {
			q = q.Where("id <> ?", exceptID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		suffix := fmt.Sprintf("-%d", i+2)
		slug = trimForSuffix(base, suffix) + suffix
	}

	suffix := fmt.Sprintf("-%x", time.Now().UnixNano()&0xffffff)
	return trimForSuffix(base, suffix) + suffix, nil
}

func trimForSuffix(base, suffix string) string {
	rs := []rune(base)
	keep := slugMaxLen - len(suffix)
	if len(rs) > keep {
		rs = rs[:keep]
	}
	out := strings.Trim(string(rs), "-")
	if out == "" {
		out = "item"
	}
	return out
}

// Underscore turns a Go field name into its snake_case JSON key.
func Underscore(s string) string {
	return strings.ToLower(reCamel.ReplaceAllString(s, "${1}_${2}"))
}
