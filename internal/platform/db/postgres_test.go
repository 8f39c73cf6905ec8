package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigSetsApplicationName(t *testing.T) {
	cfg, err := ParseConfig("postgres://u:p@localhost:5432/partners?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, ApplicationName, cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = ParseConfig("postgres://u:p@localhost:5432/partners?sslmode=disable&application_name=ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestParseConfigRejectsGarbage(t *testing.T) {
	_, err := ParseConfig("postgres://%zz")
	assert.Error(t, err)
}
