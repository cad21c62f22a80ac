package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuild(t *testing.T) {
	cols := []string{"id", "name", "email", "deleted_at"}

	t.Run("soft deletes are excluded by default", func(t *testing.T) {
		sql, args, err := NewQuery("users", cols, true).Where("email", "=", "a@b.c").Take(1).Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, email, deleted_at FROM users WHERE email = $1 AND deleted_at IS NULL LIMIT 1", sql)
		assert.Equal(t, []any{"a@b.c"}, args)
	})

	t.Run("only trashed", func(t *testing.T) {
		sql, _, err := NewQuery("users", cols, true).OnlyTrashed().Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, email, deleted_at FROM users WHERE deleted_at IS NOT NULL", sql)
	})

	t.Run("with trashed has no filter", func(t *testing.T) {
		sql, _, err := NewQuery("users", cols, true).WithTrashed().Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, email, deleted_at FROM users", sql)
	})

	t.Run("in between and ordering", func(t *testing.T) {
		sql, args, err := NewQuery("users", cols, false).
			Select("id", "name").
			WhereIn("id", 1, 2, 3).
			WhereBetween("id", 0, 10).
			Where("name", "!=", "x").
			OrderBy("id", "desc").
			Take(5).
			Offset(10).
			Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name FROM users WHERE id IN ($1, $2, $3) AND id BETWEEN $4 AND $5 AND name <> $6 ORDER BY id DESC LIMIT 5 OFFSET 10", sql)
		assert.Len(t, args, 6)
	})

	t.Run("empty in matches nothing", func(t *testing.T) {
		sql, args, err := NewQuery("users", cols, false).WhereIn("id").WhereNotIn("id").Build()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, email, deleted_at FROM users WHERE FALSE", sql)
		assert.Empty(t, args)
	})

	t.Run("count ignores paging", func(t *testing.T) {
		sql, args, err := NewQuery("users", cols, true).WhereNull("email").OrderBy("id", "asc").Take(3).BuildCount()
		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(*) FROM users WHERE email IS NULL AND deleted_at IS NULL", sql)
		assert.Empty(t, args)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, _, err := NewQuery("users", cols, false).Where("password; DROP TABLE users", "=", 1).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown column")
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := NewQuery("users", cols, false).Where("id", "~", 1).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported operator")
	})

	t.Run("clone is independent", func(t *testing.T) {
		base := NewQuery("users", cols, false).Where("id", ">", 1)
		clone := base.Clone().Where("name", "=", "x")

		baseSQL, _, err := base.Build()
		require.NoError(t, err)
		cloneSQL, _, err := clone.Build()
		require.NoError(t, err)
		assert.NotEqual(t, baseSQL, cloneSQL)
	})
}
