package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/gpsr?sslmode=disable", "pgx5://u:p@localhost:5432/gpsr?sslmode=disable"},
		{"postgresql://u@db/gpsr", "pgx5://u@db/gpsr"},
		{"pgx5://u@db/gpsr", "pgx5://u@db/gpsr"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
