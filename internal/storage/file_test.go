package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"123456", "123456"},
		{"-1001234567890", "-1001234567890"},
		{"chat id!", "chatid"},
		{"a/b\\c", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeKey(tt.raw))
	}
}

func TestFileStorePutGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, ok, err := store.Get("chat_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put("chat_1", []byte(`["hello"]`)))

	data, ok, err := store.Get("chat_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `["hello"]`, string(data))
}

func TestFileStoreUpdate(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	err = store.Update("chat_1", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`["a"]`), nil
	})
	require.NoError(t, err)

	err = store.Update("chat_1", func(current []byte) ([]byte, error) {
		assert.JSONEq(t, `["a"]`, string(current))
		return []byte(`["a","b"]`), nil
	})
	require.NoError(t, err)

	data, ok, err := store.Get("chat_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, string(data))
}

func TestFileStoreUpdateError(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	wantErr := errors.New("boom")
	err = store.Update("chat_1", func(current []byte) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok, err := store.Get("chat_1")
	require.NoError(t, err)
	assert.False(t, ok, "failed update must not create the key")
}

func TestFileStoreDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Put("chat_1", []byte(`[]`)))
	require.NoError(t, store.Delete("chat_1"))

	_, ok, err := store.Get("chat_1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is fine
	assert.NoError(t, store.Delete("chat_1"))
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Put("k", []byte("abc")))
	data, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)

	// Mutating the returned slice must not affect the stored value
	data[0] = 'x'
	again, _, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
