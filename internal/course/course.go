// Package course holds the pure naming scheme shared by the enrollment
// engine and the provisioning layer: canonical slugs, container and category
// names, and the department catalog. Nothing here performs I/O.
package course

import (
	"fmt"
	"regexp"
	"strings"
)

// Departments is the fixed catalog of course departments accepted by the
// enrollment engine, in upper-case canonical form.
var Departments = []string{
	"PHYSICS",
	"ASTRON",
	"CHEM",
	"MATH",
	"STAT",
	"BIOLOGY",
	"MCELLBI",
	"INTEGBI",
	"DATA",
	"EECS",
	"CS",
	"MECHE",
	"CIVENG",
	"INDENG",
	"NUCENG",
	"MSE",
	"BIOE",
	"ENGIN",
	"ECON",
	"UGBA",
	"POLSCI",
	"SOCIOL",
	"PSYCH",
	"PHILOS",
	"ESPM",
	"EPS",
	"GEOG",
	"ENGLISH",
	"HISTORY",
	"SPANISH",
	"FRENCH",
	"ITALIAN",
	"CHINESE",
	"KOREAN",
	"JAPAN",
	"LINGUIS",
	"RHETOR",
	"FILM",
	"ART",
	"DESINV",
	"ARCH",
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	slugPattern = regexp.MustCompile(`^(fa|sp)\d{2}-([a-z]+)-`)
)

// IsDepartment reports whether dept, after normalization, is in the catalog.
func IsDepartment(dept string) bool {
	needle := strings.ToUpper(normalize(dept))
	for _, d := range Departments {
		if d == needle {
			return true
		}
	}
	return false
}

// MatchDepartments returns catalog entries matching the query, prefix matches
// first, then substring matches, capped at limit (unlimited when <= 0).
func MatchDepartments(query string, limit int) []string {
	q := strings.ToUpper(strings.TrimSpace(query))
	var starts, contains []string
	for _, d := range Departments {
		switch {
		case strings.HasPrefix(d, q):
			starts = append(starts, d)
		case strings.Contains(d, q):
			contains = append(contains, d)
		}
	}
	matches := append(starts, contains...)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Slug derives the canonical course identifier for a term, department and
// course number. Inputs differing only in case or whitespace produce the
// same slug.
func Slug(term, dept, number string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(term), normalizeCourse(dept, number))
}

// ContainerName names the per-department container channel for a term.
func ContainerName(dept, term string) string {
	return fmt.Sprintf("%s-courses-%s", strings.ToLower(normalize(dept)), strings.ToLower(term))
}

// CategoryName names the category grouping all course containers for a term.
func CategoryName(term string) string {
	return fmt.Sprintf("📚 Courses (%s)", strings.ToUpper(term))
}

// ArchiveCategoryName names the category holding retired containers.
func ArchiveCategoryName(term string) string {
	return fmt.Sprintf("📦 Archived (%s)", strings.ToUpper(term))
}

// DeptFromSlug extracts the lower-cased department from a slug, reporting
// false when the slug does not have the {term}-{dept}- shape.
func DeptFromSlug(slug string) (string, bool) {
	m := slugPattern.FindStringSubmatch(strings.ToLower(slug))
	if m == nil {
		return "", false
	}
	return m[2], true
}

func normalizeCourse(dept, number string) string {
	d := strings.ToLower(normalize(dept))
	n := strings.ToUpper(normalize(number))
	return fmt.Sprintf("%s-%s", d, n)
}

func normalize(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), "")
}
