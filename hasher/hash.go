// Package hasher verifies client secrets and one time codes held in configuration.
package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrMalformedHash = Error("malformed hash")
	ErrUnknownScheme = Error("unknown hash scheme")
)

type (
	// SecretCrypto a one way secret encoding, identified by the prefix of its output.
	SecretCrypto interface {
		Name() string
		Hash(raw string) (string, error)
		Validate(raw, hashed string) bool
	}
	bcryptCrypto struct {
		cost int
	}
	argon2Crypto struct {
		Argon2Argument
	}
	Argon2Argument struct {
		Memory      uint32
		Iterations  uint32
		Parallelism uint8
		SaltLength  uint32
		KeyLength   uint32
	}
)

var DefaultArgon2Argument = Argon2Argument{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// BCrypt with cost, [bcrypt.DefaultCost] when out of range. Secrets longer than 72 bytes are truncated.
func BCrypt(cost int) SecretCrypto {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return bcryptCrypto{cost: cost}
}

// Argon2id with arguments, zero fields take [DefaultArgon2Argument].
func Argon2id(a Argon2Argument) SecretCrypto {
	d := DefaultArgon2Argument
	if a.Memory == 0 {
		a.Memory = d.Memory
	}
	if a.Iterations == 0 {
		a.Iterations = d.Iterations
	}
	if a.Parallelism == 0 {
		a.Parallelism = d.Parallelism
	}
	if a.SaltLength == 0 {
		a.SaltLength = d.SaltLength
	}
	if a.KeyLength == 0 {
		a.KeyLength = d.KeyLength
	}
	return argon2Crypto{a}
}

func (a argon2Crypto) Name() string {
	return "$a2id$"
}

// Hash $a2id$version$memory$iterations$parallelism$salt$key, numbers in hex.
func (a argon2Crypto) Hash(raw string) (string, error) {
	salt := make([]byte, a.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, a.Iterations, a.Memory, a.Parallelism, a.KeyLength)
	return fmt.Sprintf("$a2id$%x$%x$%x$%x$%s$%s", argon2.Version, a.Memory, a.Iterations, a.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

func (a argon2Crypto) Validate(raw, hashed string) bool {
	parts := strings.Split(hashed, "$")
	if len(parts) != 8 || parts[1] != "a2id" {
		return false
	}
	var n [4]uint64
	for i := range n {
		v, err := strconv.ParseUint(parts[2+i], 16, 32)
		if err != nil {
			return false
		}
		n[i] = v
	}
	if n[0] != argon2.Version || n[3] > 255 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[6])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[7])
	if err != nil || len(key) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(raw), salt, uint32(n[2]), uint32(n[1]), uint8(n[3]), uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

func (s bcryptCrypto) Name() string {
	return "$2a$"
}

func truncate(raw string) []byte {
	bin := []byte(raw)
	if len(bin) > 72 {
		bin = bin[:72]
	}
	return bin
}

func (s bcryptCrypto) Hash(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(truncate(raw), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s bcryptCrypto) Validate(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), truncate(raw)) == nil
}

// Of the crypto able to validate hashed.
func Of(hashed string) (SecretCrypto, error) {
	switch {
	case strings.HasPrefix(hashed, "$a2id$"):
		return argon2Crypto{DefaultArgon2Argument}, nil
	case strings.HasPrefix(hashed, "$2a$"), strings.HasPrefix(hashed, "$2b$"), strings.HasPrefix(hashed, "$2y$"):
		return bcryptCrypto{cost: bcrypt.DefaultCost}, nil
	case hashed == "":
		return nil, ErrMalformedHash
	default:
		return nil, fmt.Errorf("%w: %.5s", ErrUnknownScheme, hashed)
	}
}

// Validate raw against hashed of any known scheme.
func Validate(raw, hashed string) bool {
	c, err := Of(hashed)
	return err == nil && c.Validate(raw, hashed)
}

func totpOpts(k *otp.Key) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(k.Period()),
		Skew:      1,
		Digits:    k.Digits(),
		Algorithm: k.Algorithm(),
	}
}

// TotpKey generates a key of account, returned as otpauth:// url.
func TotpKey(issuer, account string) (string, error) {
	k, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account})
	if err != nil {
		return "", err
	}
	return k.URL(), nil
}

// TotpValidate code at t against def, an otpauth:// url or a bare base32 secret.
func TotpValidate(code, def string, t time.Time) bool {
	if !strings.HasPrefix(def, "otpauth://") {
		ok, err := totp.ValidateCustom(code, def, t, totp.ValidateOpts{Period: 30, Skew: 1, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1})
		return err == nil && ok
	}
	k, err := otp.NewKeyFromURL(def)
	if err != nil {
		return false
	}
	ok, err := totp.ValidateCustom(code, k.Secret(), t, totpOpts(k))
	return err == nil && ok
}

// TotpCode the code of def at t.
func TotpCode(def string, t time.Time) (string, error) {
	if !strings.HasPrefix(def, "otpauth://") {
		return totp.GenerateCode(def, t)
	}
	k, err := otp.NewKeyFromURL(def)
	if err != nil {
		return "", err
	}
	return totp.GenerateCodeCustom(k.Secret(), t, totpOpts(k))
}
