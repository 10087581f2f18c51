package utils

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomReferralCode(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := randomReferralCode(r)
		require.Len(t, code, referralCodeLength)
		for _, ch := range code {
			require.True(t, strings.ContainsRune(letterBytes, ch), "unexpected character %q in code %s", ch, code)
		}
		seen[code] = struct{}{}
	}

	// 100 draws from a 36^8 space should never collide.
	require.Len(t, seen, 100)
}
