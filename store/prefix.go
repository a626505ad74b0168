package store

import (
	"strings"
)

const keySeparator = "/"

// Prefixer builds keys under a common namespace: Prefixer("a")("b", "c")
// yields "a/b/c".
func Prefixer(prefix string) func(k ...string) []byte {
	return func(parts ...string) []byte {
		if len(parts) == 0 {
			return []byte(prefix)
		}
		return []byte(prefix + keySeparator + strings.Join(parts, keySeparator))
	}
}
