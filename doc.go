// Package sqlinspect inspects and queries SQLite, MySQL/MariaDB and
// PostgreSQL databases through one dialect-independent API.
//
// A ConnectionDescriptor is parsed once from a connection URL:
//
//	desc, err := sqlinspect.ParseURL("sqlite:///var/data/app.db?mode=ro")
//	db, err := sqlinspect.Open(ctx, desc)
//	tables, err := db.Tables(ctx)
//	res, err := db.Execute(ctx, "SELECT * FROM users")
//
// Every result cell is returned as an optional string so that columns of any
// SQL type share one shape. Read-only enforcement is the caller's job:
// check IsWrite before executing when the descriptor is read-only.
package sqlinspect
