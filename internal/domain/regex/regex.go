// Package regex compiles and caches various regex expressions.
package regex

import (
	"regexp"
	"sync"
)

var (
	percentOnce  sync.Once
	percentToken *regexp.Regexp

	ansiOnce   sync.Once
	ansiEscape *regexp.Regexp
)

// PercentCompile compiles regex for an integer or decimal percentage token.
func PercentCompile() *regexp.Regexp {
	percentOnce.Do(func() {
		percentToken = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	})
	return percentToken
}

// AnsiEscapeCompile compiles regex for ANSI escape codes.
func AnsiEscapeCompile() *regexp.Regexp {
	ansiOnce.Do(func() {
		ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	})
	return ansiEscape
}
