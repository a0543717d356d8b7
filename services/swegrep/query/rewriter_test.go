package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosif16/swe-grep/services/swegrep/types"
)

func TestIsLiteralSymbol(t *testing.T) {
	assert.True(t, IsLiteralSymbol("login_user"))
	assert.True(t, IsLiteralSymbol("_"))
	assert.False(t, IsLiteralSymbol("User.fetch"))
	assert.False(t, IsLiteralSymbol("fetch(user)"))
}

func TestForSymbolLiteralFirst(t *testing.T) {
	variants := ForSymbol("fetchUser", types.LangUnspecified)
	require.NotEmpty(t, variants)
	assert.Equal(t, "fetchUser", variants[0].Text)
	assert.Equal(t, types.VariantLiteral, variants[0].Kind)
}

func TestForSymbolCapsAtMaxVariants(t *testing.T) {
	variants := ForSymbol("fetchUser", types.LangAutoSwiftTS)
	assert.LessOrEqual(t, len(variants), MaxVariants)
}

func TestForSymbolDeduplicates(t *testing.T) {
	variants := ForSymbol("User", types.LangUnspecified)
	seen := make(map[string]bool)
	for _, v := range variants {
		require.False(t, seen[v.Text], "duplicate variant %q", v.Text)
		seen[v.Text] = true
	}
}

func TestForSymbolRustPreset(t *testing.T) {
	variants := ForSymbol("login_user", types.LangRust)
	var hasFn bool
	for _, v := range variants {
		if v.Text == "fn login_user" {
			hasFn = true
		}
	}
	assert.True(t, hasFn)
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `fetch\(user\)`, EscapeLiteral("fetch(user)"))
	assert.Equal(t, "login_user", EscapeLiteral("login_user"))
}

func TestDeriveTypeHint(t *testing.T) {
	assert.Equal(t, "LoginUser", DeriveTypeHint("login_user"))
	assert.Equal(t, "FetchUser", DeriveTypeHint("fetchUser"))
}
