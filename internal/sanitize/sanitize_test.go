package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, Profile(nil))
	})

	t.Run("dotted keys are rewritten at every depth", func(t *testing.T) {
		got := Profile(map[string]any{
			"v0.name": "alice",
			"nested": map[string]any{
				"a.b.c": 1,
			},
		})
		require.Contains(t, got, "v0_name")
		require.Contains(t, got, "nested")
		nested := got["nested"].(map[string]any)
		assert.Equal(t, 1, nested["a_b_c"])
	})

	t.Run("reserved sigil is replaced, not stacked", func(t *testing.T) {
		got := Profile(map[string]any{"$ref": "x"})
		assert.Equal(t, map[string]any{"_ref": "x"}, got)
	})

	t.Run("maps inside slices are rebuilt", func(t *testing.T) {
		got := Profile(map[string]any{
			"account": []any{
				map[string]any{"service.name": "twitter"},
				"plain",
			},
		})
		account := got["account"].([]any)
		entry := account[0].(map[string]any)
		assert.Equal(t, "twitter", entry["service_name"])
		assert.Equal(t, "plain", account[1])
	})

	t.Run("no unsafe key survives at any depth", func(t *testing.T) {
		got := Profile(map[string]any{
			"$top": map[string]any{
				"mid.dle": []any{
					map[string]any{"$deep.key": true},
				},
			},
		})
		assertSafe(t, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := map[string]any{
			"$a":  "x",
			"b.c": map[string]any{"$d.e": []any{map[string]any{"f.g": 1}}},
		}
		once := Profile(in)
		twice := Profile(once)
		assert.Equal(t, once, twice)
	})

	t.Run("output does not alias input", func(t *testing.T) {
		inner := map[string]any{"key": "before"}
		in := map[string]any{"nested": inner, "list": []any{inner}}
		got := Profile(in)
		inner["key"] = "after"
		assert.Equal(t, "before", got["nested"].(map[string]any)["key"])
		assert.Equal(t, "before", got["list"].([]any)[0].(map[string]any)["key"])
	})
}

func assertSafe(t *testing.T, value any) {
	t.Helper()
	switch v := value.(type) {
	case map[string]any:
		for key, elem := range v {
			assert.NotContains(t, key, ".", "key %q contains separator", key)
			assert.False(t, strings.HasPrefix(key, "$"), "key %q starts with sigil", key)
			assertSafe(t, elem)
		}
	case []any:
		for _, elem := range v {
			assertSafe(t, elem)
		}
	}
}
