package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidVersion is returned by ParseStrict when text does not follow the grammar.
var ErrInvalidVersion = errors.New("invalid version")

// Parse parses text into a Version. Surrounding white space is ignored.
// It reports false for malformed input and never panics, so callers scanning
// arbitrary tags can simply skip what does not parse.
func Parse(text string) (Version, bool) {
	var v Version
	raw := strings.TrimSpace(text)
	if raw == "" {
		return v, false
	}

	dot := strings.IndexByte(raw, separator)
	if dot < 0 {
		return v, false
	}

	slash := strings.LastIndexByte(raw[:dot], pathSeparator)
	if slash == 0 {
		return v, false
	}
	if slash > 0 {
		v.PathPrefix = raw[:slash]
		raw = raw[slash+1:]
	}
	if raw == "" {
		return v, false
	}

	if r, _ := utf8.DecodeRuneInString(raw); unicode.IsLetter(r) {
		v.Products, raw = nextBlock(raw)
	}

	var block string
	var ok bool

	block, raw = nextBlock(raw)
	if v.Major, ok = parseNumber(block); !ok {
		return v, false
	}

	block, raw = nextBlock(raw)
	if v.Minor, ok = parseNumber(block); !ok {
		return v, false
	}

	if strings.HasPrefix(raw, anyText) {
		v.Build = Any
		raw = raw[len(anyText):]
	} else {
		n := 0
		for n < len(raw) && raw[n] >= '0' && raw[n] <= '9' {
			n++
		}
		if v.Build, ok = parseDigits(raw[:n]); !ok {
			return v, false
		}
		raw = raw[n:]
	}

	v.SuffixSeparator = DefaultSuffixSeparator
	if raw == "" {
		return v, true
	}

	// A bare ".N" after the build is a special number without suffix, the
	// form Format writes for such versions.
	if last := strings.LastIndexByte(raw, separator); last >= 0 {
		if special, isNumber := parseNumber(raw[last+1:]); isNumber {
			v.Special = special
			raw = raw[:last]
			if raw == "" {
				return v, true
			}
		}
	}

	sep := raw[0]
	if (sep != '-' && sep != '+') || len(raw) < 2 {
		return v, false
	}
	if raw[1] == separator {
		return v, false
	}
	v.SuffixSeparator = sep
	v.Suffix = raw[1:]
	return v, true
}

// ParseStrict is Parse with an error naming the rejected text.
func ParseStrict(text string) (Version, error) {
	v, ok := Parse(text)
	if !ok {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, text)
	}
	return v, nil
}

// MustParse is ParseStrict for literals; it panics on malformed input.
func MustParse(text string) Version {
	v, err := ParseStrict(text)
	if err != nil {
		panic(err)
	}
	return v
}

// nextBlock splits raw at the next '.'. When there is none it returns an
// empty block and leaves raw untouched.
func nextBlock(raw string) (string, string) {
	i := strings.IndexByte(raw, separator)
	if i < 0 {
		return "", raw
	}
	return raw[:i], raw[i+1:]
}

func parseNumber(s string) (uint32, bool) {
	if s == anyText {
		return Any, true
	}
	return parseDigits(s)
}

// parseDigits parses a decimal literal. The value of Any is reserved for "*"
// and rejected as a literal.
func parseDigits(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == uint64(Any) {
		return 0, false
	}
	return uint32(n), true
}
