package image

import "strings"

// Default OCR language sets.
var (
	DefaultLanguages         = []string{"heb", "eng"}
	DefaultFallbackLanguages = []string{"eng"}
)

// NarrowLanguages returns the subset of preferred that is installed. When
// none of them is, the installed subset of fallback is used, and when that is
// empty too, fallback is returned unchanged and the engine decides. A nil
// available list means installed models are unknown and preferred is kept.
func NarrowLanguages(preferred, fallback, available []string) []string {
	if available == nil {
		if len(preferred) > 0 {
			return preferred
		}
		return fallback
	}

	installed := make(map[string]bool, len(available))
	for _, lang := range available {
		installed[strings.TrimSpace(lang)] = true
	}

	if got := intersect(preferred, installed); len(got) > 0 {
		return got
	}
	if got := intersect(fallback, installed); len(got) > 0 {
		return got
	}
	return fallback
}

// MissingLanguages lists the entries of want that are not installed.
func MissingLanguages(want, available []string) []string {
	installed := make(map[string]bool, len(available))
	for _, lang := range available {
		installed[strings.TrimSpace(lang)] = true
	}

	var missing []string
	for _, lang := range want {
		if !installed[lang] {
			missing = append(missing, lang)
		}
	}
	return missing
}

func intersect(langs []string, installed map[string]bool) []string {
	var out []string
	for _, lang := range langs {
		if installed[lang] {
			out = append(out, lang)
		}
	}
	return out
}

// SameLanguages reports whether a and b name the same languages in order.
func SameLanguages(a, b []string) bool {
	return strings.Join(a, "+") == strings.Join(b, "+")
}
