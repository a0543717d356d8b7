package langtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagReturnsCanonicalLanguageForKnownExtensions(t *testing.T) {
	tg := New(8)
	assert.Equal(t, "rust", tg.Tag("src/lib.rs"))
	assert.Equal(t, "swift", tg.Tag("Sources/App/Main.swift"))
	assert.Equal(t, "tsx", tg.Tag("Component.tsx"))
}

func TestTagReturnsEmptyForUnknownExtension(t *testing.T) {
	tg := New(8)
	assert.Equal(t, "", tg.Tag("Makefile"))
	assert.Equal(t, "", tg.Tag("data.bin"))
}

func TestTagMemoizesRepeatedPaths(t *testing.T) {
	tg := New(1)
	first := tg.Tag("a.rs")
	second := tg.Tag("a.rs")
	assert.Equal(t, first, second)
	assert.Equal(t, "rust", second)
}

func TestExtensionsForReturnsAllExtensionsMappingToLanguage(t *testing.T) {
	exts := ExtensionsFor("cpp")
	assert.ElementsMatch(t, []string{".cc", ".cpp", ".hpp"}, exts)
}

func TestExtensionsForUnknownLanguageReturnsNil(t *testing.T) {
	assert.Nil(t, ExtensionsFor("cobol"))
}
