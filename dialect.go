package sqlinspect

import "strings"

// Dialect identifies one of the supported SQL backends.
type Dialect int

const (
	DialectSQLite Dialect = iota + 1
	DialectMySQL
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectMySQL:
		return "mysql"
	case DialectPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// MarshalText renders the dialect by name in JSON and YAML output.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// dialectForScheme maps a URL scheme to its dialect.
func dialectForScheme(scheme string) (Dialect, bool) {
	switch strings.ToLower(scheme) {
	case "sqlite":
		return DialectSQLite, true
	case "mysql":
		return DialectMySQL, true
	case "postgres", "postgresql":
		return DialectPostgres, true
	default:
		return 0, false
	}
}
