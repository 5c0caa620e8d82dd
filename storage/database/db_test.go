package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projhub/portal/core"
)

func TestOpen(t *testing.T) {
	conf := &core.Config{}

	t.Run("memory", func(t *testing.T) {
		conf.Database.Engine = core.EngineMemory
		repos, err := Open(context.Background(), conf)
		require.NoError(t, err)
		assert.NotNil(t, repos.Batch)
		assert.NotNil(t, repos.Faculty)
		assert.NotNil(t, repos.Review)
		assert.NotNil(t, repos.Attendance)
		assert.NotNil(t, repos.Title)
		assert.NoError(t, repos.Close())
	})

	t.Run("unknown engine", func(t *testing.T) {
		conf.Database.Engine = "sqlite"
		_, err := Open(context.Background(), conf)
		assert.EqualError(t, err, `unknown database engine "sqlite"`)
	})
}
