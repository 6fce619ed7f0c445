// internal/room/code_test.go
package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeLength(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := NewCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
	}
}

func TestNewCodeAlphabetExcludesConfusables(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewCode(8)
		require.NoError(t, err)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q in %s", c, code)
		}
		assert.NotContainsf(t, code, "0", "code %s", code)
		assert.NotContainsf(t, code, "O", "code %s", code)
		assert.NotContainsf(t, code, "1", "code %s", code)
		assert.NotContainsf(t, code, "I", "code %s", code)
	}
}
