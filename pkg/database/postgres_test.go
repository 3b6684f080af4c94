package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-wellness-api/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "svc", Password: "p@ss word", Name: "wellness"})
	assert.Equal(t, "postgres://svc:p%40ss%20word@db:5432/wellness?sslmode=disable", dsn)
}

func TestDSNKeepsSSLMode(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "svc", Name: "wellness", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
