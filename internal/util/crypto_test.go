package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomBytes(t *testing.T) {
	t.Run("Generate correct length", func(t *testing.T) {
		bytes, err := CryptoRandomBytes(20)
		require.NoError(t, err)
		assert.Len(t, bytes, 20)
	})

	t.Run("Generate unique values", func(t *testing.T) {
		bytes1, err := CryptoRandomBytes(20)
		require.NoError(t, err)

		bytes2, err := CryptoRandomBytes(20)
		require.NoError(t, err)

		assert.NotEqual(t, bytes1, bytes2, "Random bytes should not be identical")
	})
}

func TestCryptoRandomString(t *testing.T) {
	str, err := CryptoRandomString(20)
	require.NoError(t, err)
	assert.Len(t, str, 20)

	for _, c := range str {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
			"Character '%c' is not a valid hex digit", c)
	}
}

func TestSHA256Hex(t *testing.T) {
	// echo -n "hello" | sha256sum
	assert.Equal(
		t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SHA256Hex("hello"),
	)
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("DL007-ABCDEF12-3C", "salt-a")
	h2 := HashToken("DL007-ABCDEF12-3C", "salt-a")
	h3 := HashToken("DL007-ABCDEF12-3C", "salt-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3, "different salts must produce different hashes")
	assert.Len(t, h1, 100)
}

func TestHMACSHA256Hex(t *testing.T) {
	// RFC 4231 test case 2
	assert.Equal(
		t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		HMACSHA256Hex([]byte("Jefe"), []byte("what do ya want for nothing?")),
	)
}

func TestCRC32Hex(t *testing.T) {
	// crc32("123456789") = 0xCBF43926
	assert.Equal(t, "CBF43926", CRC32Hex("123456789"))

	sum := CRC32Hex("DL007-ABCDEF12secret")
	assert.Len(t, sum, 8)
	assert.Equal(t, strings.ToUpper(sum), sum)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
	assert.True(t, ConstantTimeEqual("", ""))
}
