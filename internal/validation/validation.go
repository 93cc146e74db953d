// Package validation checks dataset and component names and parses
// section lists.
package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/xtxerr/volimport/internal/errors"
)

// NameRules bound the names that end up in coordinate space names and
// table keys. Letters and digits are always allowed.
type NameRules struct {
	MaxLength int

	// Punct lists the non-alphanumeric characters allowed after the
	// first position.
	Punct string
}

// DatasetRules returns the rules for dataset names.
func DatasetRules() NameRules {
	return NameRules{MaxLength: 255, Punct: ".-_"}
}

// ComponentRules returns the rules for channel and transform names. Dots
// separate the parts of a coordinate space name, so they are rejected.
func ComponentRules() NameRules {
	return NameRules{MaxLength: 255, Punct: "-_ "}
}

// ValidateName checks name against rules. Failures wrap ErrInvalidName.
func ValidateName(name string, rules NameRules) error {
	if problem := nameProblem(name, rules); problem != "" {
		return fmt.Errorf("%w: %s", errors.ErrInvalidName, problem)
	}
	return nil
}

func nameProblem(name string, rules NameRules) string {
	switch {
	case name == "":
		return "empty"
	case len(name) > rules.MaxLength:
		return fmt.Sprintf("longer than %d bytes", rules.MaxLength)
	case name[0] == '.':
		return "leading dot"
	}

	for i, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case unicode.IsControl(r):
			return fmt.Sprintf("control character at byte %d", i)
		case r == '/', r == '\\':
			return fmt.Sprintf("path separator at byte %d", i)
		case !strings.ContainsRune(rules.Punct, r):
			return fmt.Sprintf("%q not allowed at byte %d", r, i)
		}
	}
	return ""
}

// ValidateDatasetName validates a dataset name.
func ValidateDatasetName(name string) error {
	if err := ValidateName(name, DatasetRules()); err != nil {
		return errors.Wrapf(err, "dataset %q", name)
	}
	return nil
}

// ValidateComponentName validates a channel or transform name.
func ValidateComponentName(kind, name string) error {
	if err := ValidateName(name, ComponentRules()); err != nil {
		return errors.Wrapf(err, "%s %q", kind, name)
	}
	return nil
}

// maxSectionRange bounds a single "a-b" range.
const maxSectionRange = 100000

// ParseSections parses a section list such as "691-695,700". The result
// is sorted and free of duplicates. An empty string yields nil, meaning
// every section.
func ParseSections(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty element in %q", errors.ErrInvalidSection, s)
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseSection(lo)
		if err != nil {
			return nil, err
		}
		if !isRange {
			out = append(out, first)
			continue
		}

		last, err := parseSection(hi)
		if err != nil {
			return nil, err
		}
		if last < first {
			return nil, fmt.Errorf("%w: descending range %q", errors.ErrInvalidSection, part)
		}
		if last-first >= maxSectionRange {
			return nil, fmt.Errorf("%w: range %q too large", errors.ErrInvalidSection, part)
		}
		for n := first; n <= last; n++ {
			out = append(out, n)
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

func parseSection(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a section number", errors.ErrInvalidSection, s)
	}
	return n, nil
}

// FormatSections is the inverse of ParseSections: consecutive numbers are
// collapsed into ranges. The input must be sorted.
func FormatSections(numbers []int) string {
	var b strings.Builder
	for i := 0; i < len(numbers); {
		j := i
		for j+1 < len(numbers) && numbers[j+1] == numbers[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(numbers[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(numbers[j]))
		}
		i = j + 1
	}
	return b.String()
}
