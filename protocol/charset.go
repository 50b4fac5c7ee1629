package protocol

// Charset ids relevant to connection negotiation. The full table mirrors
// https://mariadb.com/kb/en/supported-character-sets-and-collations/ but
// only the entries a client is likely to ask for by name are named here;
// GetCharsetName falls through to "unknown" for anything else (the server
// is always the authority on its own character_set table).
const (
	CharsetBig5ChineseCI    = 1
	CharsetLatin1SwedishCI  = 8
	CharsetAsciiGeneralCI   = 11
	CharsetUTF8GeneralCI    = 33
	CharsetGBKChineseCI     = 28
	CharsetGB2312ChineseCI  = 24
	CharsetUTF8MB4GeneralCI = 45
	CharsetUTF8MB4Bin       = 46
	CharsetUTF8MB4UnicodeCI = 224
	CharsetUTF8MB40900AICI  = 255

	CharsetUTF8    = CharsetUTF8GeneralCI
	CharsetUTF8MB4 = CharsetUTF8MB4GeneralCI
	CharsetDefault = CharsetUTF8MB40900AICI
	CharsetLatin1  = CharsetLatin1SwedishCI
	CharsetAscii   = CharsetAsciiGeneralCI
	CharsetGBK     = CharsetGBKChineseCI
	CharsetBig5    = CharsetBig5ChineseCI
)

var charsetNames = map[uint8]string{
	CharsetBig5ChineseCI:    "big5_chinese_ci",
	CharsetLatin1SwedishCI:  "latin1_swedish_ci",
	CharsetAsciiGeneralCI:   "ascii_general_ci",
	CharsetUTF8GeneralCI:    "utf8_general_ci",
	CharsetGBKChineseCI:     "gbk_chinese_ci",
	CharsetGB2312ChineseCI:  "gb2312_chinese_ci",
	CharsetUTF8MB4GeneralCI: "utf8mb4_general_ci",
	CharsetUTF8MB4Bin:       "utf8mb4_bin",
	CharsetUTF8MB4UnicodeCI: "utf8mb4_unicode_ci",
	CharsetUTF8MB40900AICI:  "utf8mb4_0900_ai_ci",
}

var charsetIDs = func() map[string]uint8 {
	m := make(map[string]uint8, len(charsetNames))
	for id, name := range charsetNames {
		m[name] = id
	}
	m["utf8"] = CharsetUTF8
	m["utf8mb4"] = CharsetUTF8MB4
	return m
}()

// GetCharsetName returns the collation name for a charset id, or "unknown".
func GetCharsetName(charsetID uint8) string {
	if name, ok := charsetNames[charsetID]; ok {
		return name
	}
	return "unknown"
}

// GetCharsetID returns the charset id for a collation or charset alias name,
// defaulting to CharsetDefault when the name isn't recognized.
func GetCharsetID(name string) uint8 {
	if id, ok := charsetIDs[name]; ok {
		return id
	}
	return CharsetDefault
}
