package hasher

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBCrypt(t *testing.T) {
	h, err := BCrypt(bcrypt.MinCost).Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$2a$"))
	assert.True(t, Validate("s3cret", h))
	assert.False(t, Validate("s3cret!", h))

	long := strings.Repeat("x", 80)
	h, err = BCrypt(bcrypt.MinCost).Hash(long)
	require.NoError(t, err)
	assert.True(t, Validate(long[:72], h))
}

func TestArgon2id(t *testing.T) {
	c := Argon2id(Argon2Argument{Memory: 1024, Iterations: 1})
	h, err := c.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, c.Name()))
	assert.Len(t, strings.Split(h, "$"), 8)
	assert.True(t, Validate("s3cret", h))
	assert.False(t, Validate("other", h))
	assert.False(t, Validate("s3cret", h[:len(h)-4]+"AAAA"))
	assert.False(t, Validate("s3cret", "$a2id$13$zz$1$1$salt$key"))
}

func TestOf(t *testing.T) {
	_, err := Of("")
	assert.ErrorIs(t, err, ErrMalformedHash)
	_, err = Of("plain")
	assert.ErrorIs(t, err, ErrUnknownScheme)
	assert.False(t, Validate("plain", "plain"))
}

func TestTotp(t *testing.T) {
	def, err := TotpKey("bitfields", "ops")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(def, "otpauth://totp/"))

	now := time.Now()
	code, err := TotpCode(def, now)
	require.NoError(t, err)
	assert.True(t, TotpValidate(code, def, now))
	assert.True(t, TotpValidate(code, def, now.Add(30*time.Second)))
	assert.False(t, TotpValidate(code, def, now.Add(5*time.Minute)))

	const secret = "JBSWY3DPEHPK3PXP"
	code, err = TotpCode(secret, now)
	require.NoError(t, err)
	assert.True(t, TotpValidate(code, secret, now))
	assert.False(t, TotpValidate("000000x", secret, now))
}
