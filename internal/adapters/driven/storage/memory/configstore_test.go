package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	values := map[string]any{"domain": "acme"}
	store := NewConfigStore(values)
	require.NotNil(t, store)

	values["domain"] = "changed"
	assert.Equal(t, "acme", store.GetString("domain"), "input map is copied")
	assert.Empty(t, store.Path())
	assert.NoError(t, store.Load())
}

func TestConfigStore_Set(t *testing.T) {
	store := NewConfigStore(nil)

	store.Set("key1", "original")
	store.Set("key1", "updated")

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore(map[string]any{"str": "hello", "num": 42})

	assert.Equal(t, "hello", store.GetString("str"))
	assert.Equal(t, "", store.GetString("num"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"int":   100,
		"int64": int64(200),
		"float": float64(300),
		"str":   "400",
	})

	assert.Equal(t, 100, store.GetInt("int"))
	assert.Equal(t, 200, store.GetInt("int64"))
	assert.Equal(t, 300, store.GetInt("float"))
	assert.Equal(t, 0, store.GetInt("str"))
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("key")
		}()
	}
	wg.Wait()

	_, ok := store.Get("key")
	assert.True(t, ok)
}
