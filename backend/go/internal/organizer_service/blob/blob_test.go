package blob

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Lifecycle(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "abc.txt", strings.NewReader("hello"), 5, "text/plain"))

	rc, err := s.Open(ctx, "abc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	path, cleanup, err := s.Localize(ctx, "abc.txt")
	require.NoError(t, err)
	cleanup()
	_, err = os.Stat(path)
	assert.NoError(t, err, "local cleanup must not remove the upload")

	require.NoError(t, s.Delete(ctx, "abc.txt"))
	require.NoError(t, s.Delete(ctx, "abc.txt"))
	_, err = s.Open(ctx, "abc.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = s.Save(context.Background(), "../evil", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
	_, _, err = s.Localize(context.Background(), ".hidden")
	assert.Error(t, err)
}
