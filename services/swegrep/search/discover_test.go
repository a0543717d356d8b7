package search

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwiftPackageHintsIncludesManifestAndSourcesTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Package.swift"), []byte("// swift-tools-version:5.9"), 0o644))

	sourcesDir := filepath.Join(root, "Sources")
	require.NoError(t, os.Mkdir(sourcesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "Flat.swift"), []byte(""), 0o644))

	targetDir := filepath.Join(sourcesDir, "UserKit")
	require.NoError(t, os.Mkdir(targetDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "UserService.swift"), []byte(""), 0o644))

	hints := swiftPackageHints(root)
	sort.Strings(hints)

	assert.Contains(t, hints, filepath.Join(root, "Package.swift"))
	assert.Contains(t, hints, filepath.Join(sourcesDir, "Flat.swift"))
	assert.Contains(t, hints, filepath.Join(targetDir, "UserService.swift"))
}

func TestSwiftPackageHintsToleratesMissingManifestAndSources(t *testing.T) {
	root := t.TempDir()
	assert.Empty(t, swiftPackageHints(root))
}

func TestSwiftPackageHintsIsCaseInsensitiveToSourcesDirName(t *testing.T) {
	root := t.TempDir()
	sourcesDir := filepath.Join(root, "sources")
	require.NoError(t, os.Mkdir(sourcesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourcesDir, "Lower.swift"), []byte(""), 0o644))

	assert.Contains(t, swiftPackageHints(root), filepath.Join(sourcesDir, "Lower.swift"))
}
