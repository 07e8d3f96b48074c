package sqlinspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url      string
		dialect  Dialect
		readOnly bool
	}{
		{"sqlite:///var/data/app.db", DialectSQLite, false},
		{"sqlite:///var/data/app.db?mode=ro", DialectSQLite, true},
		{"sqlite::memory:", DialectSQLite, false},
		{"SQLITE://data.db", DialectSQLite, false},
		{"mysql://root:pw@localhost:3306/shop", DialectMySQL, false},
		{"mysql://root@localhost/shop?mode=ro&parseTime=true", DialectMySQL, true},
		{"postgres://app@db/shop?mode=rw", DialectPostgres, false},
		{"postgresql://app@db/shop?sslmode=disable&mode=ro", DialectPostgres, true},
		{"postgres://app@db/shop?mode=RO", DialectPostgres, false},
		{"postgres://app@db/shop#mode=ro", DialectPostgres, false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			desc, err := ParseURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.dialect, desc.Dialect())
			assert.Equal(t, tc.readOnly, desc.ReadOnly())
			assert.Equal(t, tc.url, desc.URL())
		})
	}
}

func TestParseURL_UnsupportedDialect(t *testing.T) {
	tests := []struct {
		url    string
		scheme string
	}{
		{"mssql://sa@localhost/db", "mssql"},
		{"oracle://scott@db/orcl", "oracle"},
		{"/var/data/app.db", ""},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			_, err := ParseURL(tc.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedDialect)

			var unsupported *UnsupportedDialectError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tc.scheme, unsupported.Scheme)
		})
	}
}

func TestConnectionDescriptor_FilePath(t *testing.T) {
	tests := []struct {
		url  string
		path string
	}{
		{"sqlite:///var/data/app.db?mode=ro", "/var/data/app.db"},
		{"sqlite://data/app.db", "data/app.db"},
		{"sqlite:app.db", "app.db"},
		{"sqlite::memory:", ":memory:"},
		{"sqlite:///tmp/with%20space.db", "/tmp/with space.db"},
		{"mysql://root@localhost/shop", ""},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			desc, err := ParseURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.path, desc.FilePath())
		})
	}
}

func TestConnectionDescriptor_DatabaseName(t *testing.T) {
	tests := []struct {
		url  string
		name string
	}{
		{"sqlite:///var/data/app.db", "app.db"},
		{"sqlite::memory:", ":memory:"},
		{"mysql://root@localhost:3306/shop?parseTime=true", "shop"},
		{"postgres://app@db/analytics", "analytics"},
		{"postgres://app@db", ""},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			desc, err := ParseURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.name, desc.DatabaseName())
		})
	}
}

func TestConnectionDescriptor_Redacted(t *testing.T) {
	desc, err := ParseURL("postgres://app:hunter2@db/shop")
	require.NoError(t, err)
	assert.NotContains(t, desc.Redacted(), "hunter2")
	assert.Contains(t, desc.Redacted(), "app:")

	desc, err = ParseURL("sqlite:///var/data/app.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///var/data/app.db", desc.Redacted())
}

func TestConnectionDescriptor_QueryIsCopied(t *testing.T) {
	desc, err := ParseURL("mysql://root@localhost/shop?mode=ro")
	require.NoError(t, err)

	q := desc.Query()
	q.Set("mode", "rw")
	assert.Equal(t, "ro", desc.Query().Get("mode"))
	assert.True(t, desc.ReadOnly())
}

func TestConnectionDescriptor_InMemory(t *testing.T) {
	tests := map[string]bool{
		"sqlite::memory:":                true,
		"sqlite::memory:?mode=ro":        true,
		"sqlite:///tmp/x.db?mode=memory": true,
		"sqlite:///tmp/x.db":             false,
		"postgres://db/memory":           false,
	}
	for rawURL, expected := range tests {
		desc, err := ParseURL(rawURL)
		require.NoError(t, err)
		assert.Equal(t, expected, desc.InMemory(), rawURL)
	}
}
