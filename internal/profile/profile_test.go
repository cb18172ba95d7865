package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	p := &Profile{DSN: "postgres://localhost/movieai"}

	require.NoError(t, p.Validate())

	assert.Equal(t, "postgres", p.Driver)
	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 8080, p.Port)
	assert.Equal(t, p.DSN, p.CatalogDSN, "catalog defaults to the store database")
	assert.Equal(t, "http://localhost:8080", p.InstanceURL)
}

func TestValidate_SqliteRequiresCatalogDSN(t *testing.T) {
	p := &Profile{Driver: "sqlite", DSN: "movieai.db"}
	require.Error(t, p.Validate(), "sqlite cannot host the vector catalog")

	p.CatalogDSN = "postgres://localhost/catalog"
	require.NoError(t, p.Validate())
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	p := &Profile{Driver: "mysql", DSN: "x"}
	assert.Error(t, p.Validate())
}

func TestValidate_MissingDSN(t *testing.T) {
	p := &Profile{}
	assert.Error(t, p.Validate())
}

func TestIsAIEnabled(t *testing.T) {
	p := &Profile{}
	assert.False(t, p.IsAIEnabled())
	p.OpenAIAPIKey = "sk-test"
	assert.True(t, p.IsAIEnabled())
}
