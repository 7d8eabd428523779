package htt

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/hasher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func issuer(t *testing.T) (*Issuer, *Tokenizer, string) {
	t.Helper()
	hash, err := hasher.BCrypt(bcrypt.MinCost).Hash("pass")
	require.NoError(t, err)
	key, err := hasher.TotpKey("bitfields", "ops")
	require.NoError(t, err)
	c := conf.Parse(fmt.Sprintf(`
jwt { secret: "s3cret", ttl: 1m
  clients {
    reader { secret: %q }
    ops { secret: %q, totp: %q }
  }
}`, hash, hash, key))
	tk, err := ConfigJwt(c)
	require.NoError(t, err)
	clients := ConfigClients(c)
	require.Len(t, clients, 2)
	assert.Equal(t, hash, clients["reader"].Secret)
	assert.Empty(t, clients["reader"].Totp)
	return NewIssuer(tk, clients), tk, key
}

func TestAuthenticate(t *testing.T) {
	i, _, key := issuer(t)
	assert.True(t, i.Authenticate("reader", "pass", ""))
	assert.False(t, i.Authenticate("reader", "wrong", ""))
	assert.False(t, i.Authenticate("nobody", "pass", ""))

	assert.False(t, i.Authenticate("ops", "pass", ""))
	code, err := hasher.TotpCode(key, time.Now())
	require.NoError(t, err)
	assert.True(t, i.Authenticate("ops", "pass", code))
}

func TestIssueToken(t *testing.T) {
	s, _ := service(t)
	i, tk, _ := issuer(t)
	router := i.Register(s.Router())
	router.HandleFunc("/tokens/leak", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := router.WithJWT(tk, "/token").Get()

	r := httptest.NewRequest(http.MethodPost, "/token", nil)
	r.SetBasicAuth("reader", "wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r.SetBasicAuth("reader", "pass")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v TokenView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	claims, err := tk.Parse(v.Token)
	require.NoError(t, err)
	assert.Equal(t, "reader", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Minute), v.Expires, 5*time.Second)

	r = httptest.NewRequest(http.MethodGet, "/tokens/leak", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/models", nil)
	r.Header.Set("Authorization", "Bearer "+v.Token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
