package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_WriteRead(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	data := []byte("jpeg bytes")
	require.NoError(t, st.Write(ctx, "profile-images/u1/a/preview.jpg", bytes.NewReader(data), int64(len(data)), "image/jpeg"))

	ok, err := st.Exists(ctx, "profile-images/u1/a/preview.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := st.Read(ctx, "profile-images/u1/a/preview.jpg")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	url, err := st.GetURL(ctx, "profile-images/u1/a/preview.jpg", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "/profile-images/u1/a/preview.jpg", url)
}

func TestLocalStorage_Missing(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	_, err = st.Read(ctx, "nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := st.Exists(ctx, "nope.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.GetURL(ctx, "nope.jpg", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	base := t.TempDir()
	st, err := NewLocalStorage(LocalConfig{BasePath: base})
	require.NoError(t, err)

	assert.Equal(t, st.basePath, st.fullPath("../../etc/passwd"))
}

func TestNew_DefaultsToLocal(t *testing.T) {
	st, err := New(context.Background(), Config{Type: "local", Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	_, ok := st.(*LocalStorage)
	assert.True(t, ok)
}
