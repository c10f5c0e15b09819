// Package citations normalizes the citation markers and list numbering that
// generation models emit. Models produce many equivalent citation spellings;
// everything downstream assumes the canonical [N] form, so all marker
// rewriting is centralized here as pure string functions.
package citations

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// [Document 1], [Doc 1], [Document 1: title], [1]
	bracketedRe = regexp.MustCompile(`(?i)\[\s*(?:Doc(?:ument)?\s*)?(\d+)\s*(?::[^\]]+)?\s*\]`)
	// Document 1] / Doc 1] with the left bracket missing
	missingBracketRe = regexp.MustCompile(`(?i)\bDoc(?:ument)?\s*(\d+)\s*\]`)

	orphanDocRe     = regexp.MustCompile(`(?i)\bDoc(?:ument)?\b\s*(\d)?`)
	orphanBracketRe = regexp.MustCompile(`\s+\](\d)?`)
	// Collapses runs of spaces and tabs only; newlines carry paragraph
	// and list structure and must survive this pass
	multiSpaceRe = regexp.MustCompile(`[^\S\n]{2,}`)

	listItemRe = regexp.MustCompile(`^(\s*)(\d+)[.)]\s+(.+)$`)

	orphanDotRe     = regexp.MustCompile(`(?m)^\.(\s+)`)
	leadingPunctRe  = regexp.MustCompile(`(?m)^[，,。、：:]\s*`)
	bulletRe        = regexp.MustCompile(`(?m)^[-*•·]\s+(.+)$`)
	tightNumberRe   = regexp.MustCompile(`(?m)^(\d+)\.([^\s])`)
	emptyListItemRe = regexp.MustCompile(`(?m)^\d+[.)]\s*$`)
	excessNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize rewrites every citation-shaped bracket pattern to the canonical
// [N] form. Plain integers outside citation brackets are left alone.
func Normalize(text string) string {
	result := bracketedRe.ReplaceAllString(text, "[$1]")
	result = missingBracketRe.ReplaceAllString(result, "[$1]")
	return result
}

// RemoveInvalidFragments strips orphaned "Document"/"Doc" words not followed
// by a digit and orphaned closing brackets, collapsing leftover whitespace.
// Run after Normalize so valid markers are already in [N] form.
func RemoveInvalidFragments(text string) string {
	// RE2 has no lookahead; keep matches that captured a trailing digit
	result := orphanDocRe.ReplaceAllStringFunc(text, func(m string) string {
		if sub := orphanDocRe.FindStringSubmatch(m); sub[1] != "" {
			return m
		}
		return ""
	})
	result = orphanBracketRe.ReplaceAllStringFunc(result, func(m string) string {
		if sub := orphanBracketRe.FindStringSubmatch(m); sub[1] != "" {
			return m
		}
		return " "
	})
	return multiSpaceRe.ReplaceAllString(result, " ")
}

// RenumberLists rewrites consecutive numbered-list lines to count
// sequentially from 1, regardless of the numerals the model emitted. A blank
// or non-list line ends the current run; the next run restarts at 1.
func RenumberLists(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	counter := 0
	inList := false

	for _, line := range lines {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			if !inList {
				inList = true
				counter = 0
			}
			counter++
			result = append(result, m[1]+strconv.Itoa(counter)+". "+m[3])
			continue
		}
		if strings.TrimSpace(line) == "" {
			inList = false
			counter = 0
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// CleanAnswerFormat is the full post-processing pass applied to every
// generated answer: citation normalization, fragment cleanup, formatting
// artifact fixes, then list renumbering.
func CleanAnswerFormat(answer string) string {
	cleaned := Normalize(answer)
	cleaned = RemoveInvalidFragments(cleaned)

	cleaned = orphanDotRe.ReplaceAllString(cleaned, "$1")
	cleaned = leadingPunctRe.ReplaceAllString(cleaned, "")
	cleaned = bulletRe.ReplaceAllString(cleaned, "$1")
	cleaned = tightNumberRe.ReplaceAllString(cleaned, "$1. $2")
	cleaned = emptyListItemRe.ReplaceAllString(cleaned, "")
	cleaned = excessNewlineRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	return RenumberLists(cleaned)
}

