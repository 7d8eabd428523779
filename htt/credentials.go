package htt

import (
	"net/http"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/hasher"
)

type (
	// Client credential of a token requester.
	Client struct {
		Secret string // bcrypt or argon2id hash
		Totp   string // otpauth:// url or base32 secret, empty to skip the second factor
	}
	TokenView struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	}
	// Issuer exchanges client credentials for tokens of its [Tokenizer].
	Issuer struct {
		tokenizer *Tokenizer
		clients   map[string]Client
		now       func() time.Time
	}
)

// ConfigClients reads
//
//	jwt.clients{ ops{ secret: "$2a$10$...", totp: "otpauth://totp/..." } }
func ConfigClients(c conf.Config) map[string]Client {
	m := make(map[string]Client)
	for name, v := range c.GetStringMap("jwt.clients") {
		m[name] = Client{Secret: v.GetString("secret", ""), Totp: v.GetString("totp", "")}
	}
	return m
}

func NewIssuer(t *Tokenizer, clients map[string]Client) *Issuer {
	return &Issuer{tokenizer: t, clients: clients, now: time.Now}
}

// Authenticate a client by secret and, when configured, its current one time code.
func (i *Issuer) Authenticate(name, secret, code string) bool {
	c, ok := i.clients[name]
	if !ok || !hasher.Validate(secret, c.Secret) {
		return false
	}
	return c.Totp == "" || hasher.TotpValidate(code, c.Totp, i.now())
}

// Register POST /token, authenticated by basic auth plus an X-OTP header for clients with totp.
func (i *Issuer) Register(r RouterConfigurer) RouterConfigurer {
	r.HandleFunc("/token", JsonSafeHandleFunc(i.token, conf.Internal().Warnf)).Methods(http.MethodPost)
	return r
}

func (i *Issuer) token(w http.ResponseWriter, r *http.Request) {
	name, secret, ok := r.BasicAuth()
	if !ok || !i.Authenticate(name, secret, r.Header.Get("X-OTP")) {
		conf.Internal().WarnContext(r.Context(), "reject client ", name)
		writeJsonError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
		return
	}
	token, err := i.tokenizer.Generate(name)
	Check(err)
	WriteJson(w, TokenView{Token: token, Expires: i.now().Add(i.tokenizer.ttl)})
}
