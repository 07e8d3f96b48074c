package sqlinspect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

	connErr := &ConnectionError{Dialect: DialectPostgres, Cause: cause}
	assert.ErrorIs(t, connErr, ErrConnectionFailed)
	assert.ErrorIs(t, connErr, cause)
	assert.NotErrorIs(t, connErr, ErrQueryFailed)
	assert.Equal(t, "connect postgres: "+cause.Error(), connErr.Error())

	queryErr := &QueryError{Query: "SELECT 1", Cause: cause}
	assert.ErrorIs(t, queryErr, ErrQueryFailed)
	assert.Equal(t, cause.Error(), queryErr.Error())

	wrapped := fmt.Errorf("list tables: %w", queryErr)
	assert.ErrorIs(t, wrapped, ErrQueryFailed)

	notFound := &TableNotFoundError{Table: "users"}
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrQueryFailed)
	assert.Equal(t, `table "users" not found`, notFound.Error())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "SQL Error: near \"SELEC\": syntax error",
		ErrorMessage(&QueryError{Cause: errors.New(`near "SELEC": syntax error`)}))
	assert.Equal(t, `SQL Error: table "t" not found`, ErrorMessage(&TableNotFoundError{Table: "t"}))
	assert.Equal(t, `unsupported database scheme: "ftp"`, ErrorMessage(&UnsupportedDialectError{Scheme: "ftp"}))
}

func TestAdapterFor(t *testing.T) {
	for _, d := range []Dialect{DialectSQLite, DialectMySQL, DialectPostgres} {
		adapter, err := AdapterFor(d)
		if assert.NoError(t, err) {
			assert.Equal(t, d, adapter.Dialect())
		}
	}

	_, err := AdapterFor(Dialect(0))
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}
