package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGobEncodeDecodeRoundTrips(t *testing.T) {
	paths := []string{"a.rs", "b/c.rs"}
	raw, err := gobEncode(paths)
	require.NoError(t, err)
	decoded, err := gobDecode(raw)
	require.NoError(t, err)
	assert.Equal(t, paths, decoded)
}

func TestIndexKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "swegrep/index/v1/fetchUser", string(indexKey("fetchUser")))
}

func TestOpenSearchFindsExactCaseMatchOverCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "FetchUser.rs"), []byte("fn FetchUser() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "fetchuser.rs"), []byte("fn fetchuser() {}"), 0o644))

	idx, err := Open(t.TempDir(), root, nil)
	require.NoError(t, err)
	defer idx.Close()

	paths, err := idx.Search(context.Background(), "FetchUser")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "FetchUser.rs")
}

func TestSearchCachesResultOnSecondLookup(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.rs"), []byte("fn Widget() {}"), 0o644))

	idx, err := Open(t.TempDir(), root, nil)
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	first, err := idx.Search(ctx, "Widget")
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, os.Remove(filepath.Join(root, "widget.rs")))

	second, err := idx.Search(ctx, "Widget")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchReturnsEmptyForUnmatchedTerm(t *testing.T) {
	root := t.TempDir()
	idx, err := Open(t.TempDir(), root, nil)
	require.NoError(t, err)
	defer idx.Close()

	paths, err := idx.Search(context.Background(), "NoSuchSymbol")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
