package sqlinspect

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenKeywords may not appear anywhere in a statement run on a
// read-only connection. INTO catches SELECT ... INTO.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "INTO",
	"DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
}

var forbiddenKeywordPatterns = compileKeywordPatterns(forbiddenKeywords)

// forbiddenLeading are statements rejected by their first keyword. They are
// either writes the keyword scan cannot see (REPLACE, COPY), session changes
// that could lift the connection's read-only setting (SET, BEGIN), or
// maintenance commands.
var forbiddenLeading = regexp.MustCompile(`(?i)^(SET|RESET|REPLACE|COPY|CALL|DO|LOCK|UNLOCK|RENAME|ATTACH|DETACH|VACUUM|REINDEX|ANALYZE|OPTIMIZE|REPAIR|LOAD|HANDLER|BEGIN|START|COMMIT|END|ROLLBACK|SAVEPOINT|RELEASE|DISCARD|PREPARE|EXECUTE|DEALLOCATE|LISTEN|NOTIFY|FLUSH|KILL|CLUSTER|REFRESH|CHECKPOINT|COMMENT|SECURITY|IMPORT)\b`)

// pragmaWrite matches PRAGMA assignments and any use of the pragmas that
// guard read-only SQLite connections.
var pragmaWrite = regexp.MustCompile(`(?i)^PRAGMA\b.*(=|\b(query_only|writable_schema)\b)`)

// alwaysReadOnly statements never modify data in any supported dialect.
var alwaysReadOnly = regexp.MustCompile(`(?i)^(SHOW|DESCRIBE|DESC)\b`)

var forbiddenFunctions = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])(set_config|setval|nextval|load_extension|pg_terminate_backend|pg_cancel_backend|lo_import|lo_export|lo_unlink)\s*\(`)

// quotedIdentifier matches "ident", `ident` and [ident]. Keywords used as
// quoted names are not keywords.
var quotedIdentifier = regexp.MustCompile("\"(?:[^\"]|\"\")*\"|`[^`]*`|\\[[^\\]]*\\]")

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		patterns[i] = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])` + kw + `(?:[^a-zA-Z_]|$)`)
	}
	return patterns
}

// ReadOnlyViolation reports whether sql may run on a read-only connection.
// It returns nil for acceptable statements and a *ReadOnlyError otherwise.
//
// The check runs on the adapter's lexed form of sql, so comments and string
// literals neither hide nor trigger a keyword. It is stricter than IsWrite:
// it also rejects multiple statements, writes behind a WITH clause or a
// leading comment, and statements that change session state. It complements
// the read-only settings carried by the DSN rather than replacing them.
func ReadOnlyViolation(a DialectAdapter, sql string) error {
	cleaned := strings.TrimSpace(a.RemoveStringsAndComments(sql))
	if cleaned == "" {
		return nil
	}

	if i := strings.IndexByte(cleaned, ';'); i >= 0 && strings.TrimSpace(strings.Trim(cleaned[i:], ";")) != "" {
		return &ReadOnlyError{Reason: "multiple statements are not allowed"}
	}
	cleaned = strings.TrimSpace(strings.TrimRight(cleaned, ";"))
	if alwaysReadOnly.MatchString(cleaned) {
		return nil
	}

	if IsWrite(cleaned) {
		return &ReadOnlyError{Reason: strings.ToUpper(firstWord(cleaned)) + " statements are not allowed"}
	}
	if m := forbiddenLeading.FindStringSubmatch(cleaned); m != nil {
		return &ReadOnlyError{Reason: strings.ToUpper(m[1]) + " statements are not allowed"}
	}
	if pragmaWrite.MatchString(cleaned) {
		return &ReadOnlyError{Reason: "PRAGMA assignments are not allowed"}
	}

	unquoted := quotedIdentifier.ReplaceAllString(cleaned, `""`)
	for i, re := range forbiddenKeywordPatterns {
		if re.MatchString(unquoted) {
			return &ReadOnlyError{Reason: "query contains forbidden keyword: " + forbiddenKeywords[i]}
		}
	}
	if m := forbiddenFunctions.FindStringSubmatch(unquoted); m != nil {
		return &ReadOnlyError{Reason: fmt.Sprintf("function %s is not allowed", strings.ToLower(m[1]))}
	}
	return nil
}

func firstWord(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}); i >= 0 {
		return s[:i]
	}
	return s
}
