package protocol

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CollationInfo describes a collation the client knows how to negotiate and,
// for non-binary collations, compare strings under.
type CollationInfo struct {
	Name     string
	ID       uint8
	Charset  string
	Tag      language.Tag
	IsBinary bool
	options  []collate.Option
}

// CollationEngine resolves collation names and aliases to a charset id
// (ChecksetID) and provides locale-aware string comparison under
// non-binary collations (Compare). Collators from
// golang.org/x/text/collate are not goroutine-safe, so one is built per call
// rather than cached on the engine.
type CollationEngine struct {
	mu       sync.RWMutex
	registry map[string]*CollationInfo
	aliases  map[string]string
}

// NewCollationEngine builds an engine pre-populated with the collations a
// client is likely to negotiate.
func NewCollationEngine() *CollationEngine {
	e := &CollationEngine{
		registry: make(map[string]*CollationInfo),
		aliases:  make(map[string]string),
	}
	e.register(&CollationInfo{Name: "utf8mb4_bin", ID: CharsetUTF8MB4Bin, Charset: "utf8mb4", IsBinary: true})
	e.register(&CollationInfo{Name: "binary", ID: 63, Charset: "binary", IsBinary: true})
	e.register(&CollationInfo{
		Name: "utf8mb4_general_ci", ID: CharsetUTF8MB4GeneralCI, Charset: "utf8mb4",
		Tag: language.Und, options: []collate.Option{collate.IgnoreCase},
	})
	e.register(&CollationInfo{
		Name: "utf8_general_ci", ID: CharsetUTF8GeneralCI, Charset: "utf8",
		Tag: language.Und, options: []collate.Option{collate.IgnoreCase},
	})
	e.register(&CollationInfo{
		Name: "utf8mb4_unicode_ci", ID: CharsetUTF8MB4UnicodeCI, Charset: "utf8mb4",
		Tag: language.Und, options: []collate.Option{collate.IgnoreCase},
	})
	e.register(&CollationInfo{
		Name: "utf8mb4_0900_ai_ci", ID: CharsetUTF8MB40900AICI, Charset: "utf8mb4",
		Tag: language.Und, options: []collate.Option{collate.IgnoreCase, collate.Loose},
	})
	e.aliases["utf8mb4"] = "utf8mb4_general_ci"
	e.aliases["utf8"] = "utf8_general_ci"
	e.aliases["default"] = "utf8mb4_0900_ai_ci"
	return e
}

func (e *CollationEngine) register(info *CollationInfo) {
	e.registry[info.Name] = info
}

// Resolve normalizes a collation or charset-alias name to a canonical
// collation name, falling back to "utf8mb4_bin" when unknown.
func (e *CollationEngine) Resolve(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "utf8mb4_bin"
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if canonical, ok := e.aliases[lower]; ok {
		return canonical
	}
	if _, ok := e.registry[lower]; ok {
		return lower
	}
	return "utf8mb4_bin"
}

// ChecksetID returns the charset id to place in the HandshakeResponse for a
// given `collation` connection-option value.
func (e *CollationEngine) ChecksetID(name string) uint8 {
	e.mu.RLock()
	info, ok := e.registry[e.resolveLocked(name)]
	e.mu.RUnlock()
	if !ok {
		return CharsetDefault
	}
	return info.ID
}

func (e *CollationEngine) resolveLocked(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := e.aliases[lower]; ok {
		return canonical
	}
	return lower
}

// Compare compares two strings under the named collation; binary collations
// compare byte-for-byte.
func (e *CollationEngine) Compare(a, b, collationName string) int {
	resolved := e.Resolve(collationName)
	e.mu.RLock()
	info := e.registry[resolved]
	e.mu.RUnlock()
	if info == nil || info.IsBinary {
		return strings.Compare(a, b)
	}
	c := collate.New(info.Tag, info.options...)
	return c.CompareString(a, b)
}
