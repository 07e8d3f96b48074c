package sqlinspect

import (
	"regexp"
	"strings"
)

// writePrefixes are the leading keywords that classify a statement as a write.
var writePrefixes = []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE"}

// IsWrite reports whether sql starts with a data- or schema-modifying keyword.
// The check is case-insensitive and ignores surrounding whitespace. Callers
// use it to reject statements on read-only connections.
func IsWrite(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range writePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// IsSelect reports whether sql is a SELECT statement and can be wrapped for
// counting and paging.
func IsSelect(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT")
}

var returningPattern = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])RETURNING(?:[^a-zA-Z_]|$)`)

// mutatingVerbs are statement verbs that produce a result set only with a
// RETURNING clause.
var mutatingVerbs = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true, "MERGE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
}

// cteMainVerbs can follow the CTE list of a WITH statement.
var cteMainVerbs = map[string]bool{
	"SELECT": true, "VALUES": true, "TABLE": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true, "MERGE": true,
}

// returnsRows reports whether a statement produces a result set. Mutations
// only do so with a RETURNING clause outside string literals and comments.
// The verb is read from the lexed statement, so leading comments and WITH
// clauses do not hide it.
func returnsRows(a DialectAdapter, sql string) bool {
	cleaned := a.RemoveStringsAndComments(sql)
	if !mutatingVerbs[statementVerb(cleaned)] {
		return true
	}
	return returningPattern.MatchString(cleaned)
}

// statementVerb returns the upper-cased keyword that decides what a lexed
// statement does: its first word, or for WITH the first verb after the CTE
// list, found at parenthesis depth zero.
func statementVerb(cleaned string) string {
	depth := 0
	first := ""
	for i := 0; i < len(cleaned); {
		c := cleaned[i]
		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			start := i
			for i < len(cleaned) && isWordByte(cleaned[i]) {
				i++
			}
			if depth != 0 {
				continue
			}
			word := strings.ToUpper(cleaned[start:i])
			if first == "" {
				if word != "WITH" {
					return word
				}
				first = word
				continue
			}
			if cteMainVerbs[word] {
				return word
			}
		default:
			i++
		}
	}
	return first
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// lexRules captures the lexical differences between dialects that matter
// when blanking out literals.
type lexRules struct {
	hashComments     bool // # starts a line comment
	backslashEscapes bool // \ escapes inside quoted strings
	doubleQuoteIsStr bool // "..." is a string, not an identifier
	dollarQuotes     bool // $tag$...$tag$ strings
	brackets         bool // [ident]
	backticks        bool // `ident`
	execComments     bool // /*! ... */ bodies are executed, so they are kept
}

// stripLiterals replaces string literals with '' and comments with a single
// space. Quoted identifiers are kept verbatim.
func stripLiterals(sql string, rules lexRules) string {
	var b strings.Builder
	n := len(sql)
	inExec := false

	for i := 0; i < n; {
		c := sql[i]
		switch {
		case c == '/' && rules.execComments && strings.HasPrefix(sql[i:], "/*!"):
			i += 3
			for i < n && sql[i] >= '0' && sql[i] <= '9' {
				i++
			}
			inExec = true
			b.WriteByte(' ')

		case inExec && c == '*' && i+1 < n && sql[i+1] == '/':
			i += 2
			inExec = false
			b.WriteByte(' ')

		case c == '-' && i+1 < n && sql[i+1] == '-', c == '#' && rules.hashComments:
			for i < n && sql[i] != '\n' {
				i++
			}
			b.WriteByte(' ')

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = n
			} else {
				i += 2 + end + 2
			}
			b.WriteByte(' ')

		case c == '$' && rules.dollarQuotes:
			if skip := dollarQuoted(sql[i:]); skip > 0 {
				i += skip
				b.WriteString("''")
				continue
			}
			b.WriteByte(c)
			i++

		case c == '\'':
			i = skipQuoted(sql, i, '\'', rules.backslashEscapes)
			b.WriteString("''")

		case c == '"' && rules.doubleQuoteIsStr:
			i = skipQuoted(sql, i, '"', rules.backslashEscapes)
			b.WriteString(`""`)

		case c == '"':
			end := skipQuoted(sql, i, '"', false)
			b.WriteString(sql[i:end])
			i = end

		case c == '`' && rules.backticks, c == '[' && rules.brackets:
			closer := byte('`')
			if c == '[' {
				closer = ']'
			}
			end := strings.IndexByte(sql[i+1:], closer)
			if end < 0 {
				b.WriteString(sql[i:])
				i = n
			} else {
				b.WriteString(sql[i : i+end+2])
				i += end + 2
			}

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

// skipQuoted returns the index just past the quoted run starting at start.
// A doubled quote character is an escaped quote.
func skipQuoted(sql string, start int, quote byte, backslash bool) int {
	n := len(sql)
	i := start + 1
	for i < n {
		switch {
		case backslash && sql[i] == '\\' && i+1 < n:
			i += 2
		case sql[i] == quote && i+1 < n && sql[i+1] == quote:
			i += 2
		case sql[i] == quote:
			return i + 1
		default:
			i++
		}
	}
	return n
}

// dollarQuoted returns the length of a $tag$...$tag$ string at the start of
// s, or 0 if s does not start one.
func dollarQuoted(s string) int {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 {
		return 0
	}
	tag := s[:end+2]
	for _, r := range tag[1 : len(tag)-1] {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return 0
		}
	}
	closeIdx := strings.Index(s[len(tag):], tag)
	if closeIdx < 0 {
		return 0
	}
	return len(tag) + closeIdx + len(tag)
}
