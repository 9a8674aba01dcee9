package monitor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// Defect is a content quality problem found on a pending post.
type Defect string

const (
	DefectTooShort     Defect = "too_short"
	DefectMissingImage Defect = "missing_image"
	DefectPlaceholder  Defect = "placeholder"
)

const minContentRunes = 10

var placeholderPattern = regexp.MustCompile(`(?i)\bundefined\b|\bnull\b|\[[^\]]*\]|\{\{[^}]*\}\}`)

// Inspect returns the post's defects in a fixed order.
func Inspect(p store.Post) []Defect {
	var defects []Defect
	content := strings.TrimSpace(p.Content)

	if placeholderPattern.MatchString(content) {
		defects = append(defects, DefectPlaceholder)
	}
	if utf8.RuneCountInString(content) < minContentRunes {
		defects = append(defects, DefectTooShort)
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		defects = append(defects, DefectMissingImage)
	}
	return defects
}

// correctable reports whether any defect can be repaired by rewriting text.
func correctable(defects []Defect) bool {
	for _, d := range defects {
		if d == DefectPlaceholder || d == DefectTooShort {
			return true
		}
	}
	return false
}

func joinDefects(defects []Defect) string {
	parts := make([]string, len(defects))
	for i, d := range defects {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}
