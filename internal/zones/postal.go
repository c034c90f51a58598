package zones

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usZIPRe     = regexp.MustCompile(`^\d{5}$`)
	usZIP4Re    = regexp.MustCompile(`^\d{9}$`)
	caPostalRe  = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)
	postalStrip = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

const regionLength = 3

// NormalizePostalCode canonicalizes a US ZIP, ZIP+4 or Canadian postal code.
// ZIP+4 codes are reduced to the five-digit ZIP.
func NormalizePostalCode(raw string) (string, bool) {
	code := postalStrip.Replace(strings.ToUpper(strings.TrimSpace(raw)))
	switch {
	case usZIPRe.MatchString(code):
		return code, true
	case usZIP4Re.MatchString(code):
		return code[:5], true
	case caPostalRe.MatchString(code):
		return code, true
	default:
		return "", false
	}
}

// Region returns the coarse area of a normalized code: the 3-digit ZIP prefix
// or the Canadian forward sortation area.
func Region(code string) string {
	if len(code) < regionLength {
		return code
	}
	return code[:regionLength]
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternRange
)

// pattern is a compiled coverage rule: "94103", "941*" or "94100-94199".
type pattern struct {
	kind  patternKind
	value string
	lo    string
	hi    string
}

func compilePattern(raw string) (pattern, error) {
	p := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if p == "" {
		return pattern{}, fmt.Errorf("empty postal pattern")
	}

	if strings.HasSuffix(p, "*") {
		prefix := strings.TrimSuffix(p, "*")
		if prefix == "" || strings.ContainsAny(prefix, "*-") {
			return pattern{}, fmt.Errorf("invalid prefix pattern %q", raw)
		}
		return pattern{kind: patternPrefix, value: prefix}, nil
	}

	if lo, hi, ok := strings.Cut(p, "-"); ok {
		if lo == "" || hi == "" || len(lo) != len(hi) || strings.Contains(hi, "-") {
			return pattern{}, fmt.Errorf("invalid range pattern %q", raw)
		}
		if lo > hi {
			return pattern{}, fmt.Errorf("range pattern %q is reversed", raw)
		}
		return pattern{kind: patternRange, lo: lo, hi: hi}, nil
	}

	if strings.Contains(p, "*") {
		return pattern{}, fmt.Errorf("wildcard must be trailing in %q", raw)
	}
	return pattern{kind: patternExact, value: p}, nil
}

func (p pattern) matches(code string) bool {
	switch p.kind {
	case patternExact:
		return code == p.value
	case patternPrefix:
		return strings.HasPrefix(code, p.value)
	case patternRange:
		return len(code) == len(p.lo) && code >= p.lo && code <= p.hi
	default:
		return false
	}
}

// touchesRegion reports whether any code the pattern covers falls in region.
func (p pattern) touchesRegion(region string) bool {
	switch p.kind {
	case patternExact:
		return Region(p.value) == region
	case patternPrefix:
		if len(p.value) >= len(region) {
			return strings.HasPrefix(p.value, region)
		}
		return strings.HasPrefix(region, p.value)
	case patternRange:
		return Region(p.lo) <= region && region <= Region(p.hi)
	default:
		return false
	}
}

func compilePatterns(raw []string) ([]pattern, error) {
	out := make([]pattern, 0, len(raw))
	for _, r := range raw {
		p, err := compilePattern(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
