package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-admin-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "admin", Password: "secret", Name: "university", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=admin password=secret dbname=university sslmode=require", dsn)
}
