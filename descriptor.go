package sqlinspect

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ConnectionDescriptor is the parsed, immutable form of a connection URL.
type ConnectionDescriptor struct {
	raw      string
	dialect  Dialect
	readOnly bool
	query    url.Values
}

// ParseURL classifies a connection URL by scheme. The descriptor is read-only
// when the URL carries mode=ro. No I/O is performed.
func ParseURL(raw string) (*ConnectionDescriptor, error) {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, &UnsupportedDialectError{}
	}
	dialect, ok := dialectForScheme(scheme)
	if !ok {
		return nil, &UnsupportedDialectError{Scheme: scheme}
	}

	_, rawQuery, _ := strings.Cut(stripFragment(rest), "?")
	// ParseQuery keeps every well-formed pair even when it reports an error.
	query, _ := url.ParseQuery(rawQuery)

	readOnly := false
	for _, v := range query["mode"] {
		if v == "ro" {
			readOnly = true
			break
		}
	}

	return &ConnectionDescriptor{
		raw:      raw,
		dialect:  dialect,
		readOnly: readOnly,
		query:    query,
	}, nil
}

func (c *ConnectionDescriptor) URL() string      { return c.raw }
func (c *ConnectionDescriptor) Dialect() Dialect { return c.dialect }
func (c *ConnectionDescriptor) ReadOnly() bool   { return c.readOnly }

// Query returns a copy of the URL's query parameters.
func (c *ConnectionDescriptor) Query() url.Values {
	out := make(url.Values, len(c.query))
	for k, v := range c.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// FilePath returns the database file referenced by a SQLite URL. It accepts
// sqlite:///abs/path.db, sqlite://relative/path.db, sqlite:path.db and
// sqlite::memory:. It is empty for network dialects.
func (c *ConnectionDescriptor) FilePath() string {
	if c.dialect != DialectSQLite {
		return ""
	}
	_, rest, _ := strings.Cut(c.raw, ":")
	rest = stripFragment(rest)
	path, _, _ := strings.Cut(rest, "?")
	path = strings.TrimPrefix(path, "//")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return path
}

// InMemory reports whether the URL names a SQLite in-memory database.
func (c *ConnectionDescriptor) InMemory() bool {
	return c.dialect == DialectSQLite && (c.FilePath() == ":memory:" || c.query.Get("mode") == "memory")
}

// DatabaseName is the database name for network dialects and the file base
// name for SQLite.
func (c *ConnectionDescriptor) DatabaseName() string {
	if c.dialect == DialectSQLite {
		path := c.FilePath()
		if path == "" || path == ":memory:" {
			return path
		}
		return filepath.Base(path)
	}
	u, err := url.Parse(c.raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Redacted returns the URL with any password masked, for logging.
func (c *ConnectionDescriptor) Redacted() string {
	if c.dialect == DialectSQLite {
		return c.raw
	}
	u, err := url.Parse(c.raw)
	if err != nil {
		return c.dialect.String() + "://…"
	}
	return u.Redacted()
}

func stripFragment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}
