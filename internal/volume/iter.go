package volume

import (
	"iter"
	"slices"
)

// SectionSet restricts a walk to a set of section numbers. A nil set
// matches every section.
type SectionSet map[int]struct{}

// NewSectionSet returns a set of the given numbers, or nil when none are
// given.
func NewSectionSet(numbers ...int) SectionSet {
	if len(numbers) == 0 {
		return nil
	}
	s := make(SectionSet, len(numbers))
	for _, n := range numbers {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether n is in the set.
func (s SectionSet) Contains(n int) bool {
	if s == nil {
		return true
	}
	_, ok := s[n]
	return ok
}

// Numbers returns the sorted members.
func (s SectionSet) Numbers() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Sections yields every section in document order that is in the set.
func (v *Volume) Sections(only SectionSet) iter.Seq[*Section] {
	return func(yield func(*Section) bool) {
		for _, b := range v.Blocks {
			for _, s := range b.Sections {
				if !only.Contains(s.Number) {
					continue
				}
				if !yield(s) {
					return
				}
			}
		}
	}
}

// Channels yields every channel of the selected sections.
func (v *Volume) Channels(only SectionSet) iter.Seq[*Channel] {
	return func(yield func(*Channel) bool) {
		for s := range v.Sections(only) {
			for _, c := range s.Channels {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Filters yields every filter of the selected sections.
func (v *Volume) Filters(only SectionSet) iter.Seq[*Filter] {
	return func(yield func(*Filter) bool) {
		for c := range v.Channels(only) {
			for _, f := range c.Filters {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// Transforms yields every transform of the selected sections.
func (v *Volume) Transforms(only SectionSet) iter.Seq[*Transform] {
	return func(yield func(*Transform) bool) {
		for c := range v.Channels(only) {
			for _, t := range c.Transforms {
				if !yield(t) {
					return
				}
			}
		}
	}
}
