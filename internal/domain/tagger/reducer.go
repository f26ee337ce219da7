package tagger

import (
	"fmt"
	"strings"
)

// Policy selects which tags of a resolved cluster are kept.
type Policy int

const (
	// All keeps every matched tag, nested ones included.
	All Policy = iota
	// NoSub drops tags whose span is a proper subset of another tag's span.
	NoSub
	// LongestDominantRight keeps a non-overlapping subset, preferring the
	// longest span and, among equally long ones, the one starting later.
	LongestDominantRight
)

var policyNames = map[Policy]string{
	All:                  "ALL",
	NoSub:                "NO_SUB",
	LongestDominantRight: "LONGEST_DOMINANT_RIGHT",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses a policy name, case-insensitively. Empty means NoSub.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return NoSub, nil
	}
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Reduce filters a cluster in place and returns the kept tags.
//
// cluster must be sorted by ascending Start (ties by ascending End). The
// result references a prefix of cluster's backing array and keeps the
// input order.
func (p Policy) Reduce(cluster []Tag) []Tag {
	if len(cluster) <= 1 {
		return cluster
	}
	switch p {
	case NoSub:
		return reduceNoSub(cluster)
	case LongestDominantRight:
		return reduceLongestDominantRight(cluster)
	default:
		return cluster
	}
}

func reduceNoSub(cluster []Tag) []Tag {
	keep := make([]bool, len(cluster))
	for i, t := range cluster {
		keep[i] = true
		for j, o := range cluster {
			if i != j && o.contains(t) && o.span() != t.span() {
				keep[i] = false
				break
			}
		}
	}
	return compact(cluster, keep)
}

func reduceLongestDominantRight(cluster []Tag) []Tag {
	const (
		open = iota
		accepted
		removed
	)
	marks := make([]uint8, len(cluster))
	for {
		longest := -1
		for i, t := range cluster {
			if marks[i] != open {
				continue
			}
			// >= so the later (rightmost) tag wins ties
			if longest < 0 || t.len() >= cluster[longest].len() {
				longest = i
			}
		}
		if longest < 0 {
			break
		}
		marks[longest] = accepted
		lt := cluster[longest]
		for i, t := range cluster {
			if marks[i] != open {
				continue
			}
			if t.overlaps(lt) {
				marks[i] = removed
			} else if t.Start >= lt.End {
				break
			}
		}
	}
	keep := make([]bool, len(cluster))
	for i, m := range marks {
		keep[i] = m == accepted
	}
	return compact(cluster, keep)
}

func compact(cluster []Tag, keep []bool) []Tag {
	out := cluster[:0]
	for i, t := range cluster {
		if keep[i] {
			out = append(out, t)
		}
	}
	return out
}
