package matcher

import (
	"regexp"
	"strings"
	"sync"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// pathPatternCache memoizes the regex compiled for a {name}-bearing path
// pattern, since a given expectation's path matcher is evaluated on every
// request that reaches the matcher.
var pathPatternCache sync.Map // string -> *regexp.Regexp

// compilePathPattern turns a path matcher carrying {name} segments into a
// regex with named capture groups, one per {name}, each matching any
// non-slash segment.
func compilePathPattern(pattern string) *regexp.Regexp {
	if cached, ok := pathPatternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}

	var b strings.Builder
	b.WriteByte('^')
	rest := pattern
	for {
		start := strings.IndexByte(rest, '{')
		if start == -1 {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		end += start
		b.WriteString(regexp.QuoteMeta(rest[:start]))
		name := rest[start+1 : end]
		b.WriteString("(?P<" + name + ">[^/]+)")
		rest = rest[end+1:]
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		re = regexp.MustCompile("^$") // never matches; invalid pattern
	}
	pathPatternCache.Store(pattern, re)
	return re
}

// PathCaptures reports whether path satisfies the Path matcher and, when it
// carries {name} segments, returns the captured segment values.
func PathCaptures(m expectation.StringMatch, path string) (bool, map[string]string) {
	if m.Empty() {
		return true, nil
	}
	if m.Regex != "" && strings.Contains(m.Regex, "{") {
		re := compilePathPattern(m.Regex)
		match := re.FindStringSubmatch(path)
		if match == nil {
			return false, nil
		}
		captures := make(map[string]string)
		for i, name := range re.SubexpNames() {
			if i > 0 && name != "" {
				captures[name] = match[i]
			}
		}
		return true, captures
	}
	return matchString(m, path), nil
}
