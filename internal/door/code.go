package door

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category names. Each is also a subdirectory of the corpus CONTEXTS dir.
const (
	CategorySecurity     = "SECURITY"
	CategoryWorkflows    = "WORKFLOWS"
	CategoryArchitecture = "ARCHITECTURE"
	CategoryTools        = "TOOLS"
	CategoryAgents       = "AGENTS"
	CategoryProjects     = "PROJECTS"
	CategoryErrors       = "ERRORS"
	CategoryLanguages    = "LANGUAGES"
	CategoryUnknown      = "UNKNOWN"
)

// Categories is the fixed, ordered set of scanned category directories.
var Categories = []string{
	CategorySecurity,
	CategoryWorkflows,
	CategoryArchitecture,
	CategoryTools,
	CategoryAgents,
	CategoryProjects,
	CategoryErrors,
	CategoryLanguages,
}

// NormalizeCode trims and uppercases a door code for lookup.
// It is idempotent.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ShortCode returns the leading run of a code up to the first letter that
// follows a digit: "D05SILENT_INSTALL" → "D05", "000PROJECT" → "000".
// Codes without digits are returned whole.
func ShortCode(code string) string {
	end := 0
	foundDigit := false
	for i, r := range code {
		switch {
		case unicode.IsDigit(r):
			foundDigit = true
			end = i + utf8.RuneLen(r)
		case foundDigit && unicode.IsLetter(r):
			return code[:end]
		case !foundDigit:
			end = i + utf8.RuneLen(r)
		}
	}
	return code[:end]
}

// InferCategory guesses the category of a door from its code prefix.
func InferCategory(code string) string {
	c := NormalizeCode(code)
	switch {
	case strings.HasPrefix(c, "000"), strings.HasPrefix(c, "P"):
		return CategoryProjects
	case strings.HasPrefix(c, "S"):
		return CategorySecurity
	case strings.HasPrefix(c, "W"):
		return CategoryWorkflows
	case strings.HasPrefix(c, "R"):
		return CategoryArchitecture
	case strings.HasPrefix(c, "T"), strings.HasPrefix(c, "D"):
		return CategoryTools
	case strings.HasPrefix(c, "A"):
		return CategoryAgents
	case strings.HasPrefix(c, "E"):
		return CategoryErrors
	default:
		return CategoryUnknown
	}
}

// IsCategory reports whether name (any case) is one of Categories.
func IsCategory(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, c := range Categories {
		if c == upper {
			return true
		}
	}
	return false
}

// CategoryFromPath returns the category directory a relative or absolute
// door path lives under, or UNKNOWN. Both slash styles are accepted.
func CategoryFromPath(path string) string {
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	// The file name itself is never a category.
	if len(segments) > 0 {
		segments = segments[:len(segments)-1]
	}
	for _, seg := range segments {
		if IsCategory(seg) {
			return strings.ToUpper(seg)
		}
	}
	return CategoryUnknown
}

// Subcategory returns the second dot-delimited segment of a semantic path,
// or "" when there is none.
func Subcategory(semanticPath string) string {
	parts := strings.Split(semanticPath, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
