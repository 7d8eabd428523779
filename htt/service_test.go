package htt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const models = `
bitfields {
  users {
    table: users
    columns {
      bits { flags: [seller, insane, stupid] }
      more_bits { bits { "1": one, "2": two, "4": four }, query_mode: in_list, scopes: false }
    }
  }
  overwritten_users { extends: users, columns { bits { flags: [seller_inherited] } } }
}
jwt { sign: HS256, secret: "s3cret", ttl: 1m }
cors { headers: [Content-Type], authorization: true, origin: ["https://example.com"] }
`

func service(t *testing.T) (*Service, conf.Config) {
	t.Helper()
	c := conf.Parse(models)
	catalog, err := schema.Load(c)
	require.NoError(t, err)
	return NewService(catalog), c
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestModels(t *testing.T) {
	s, _ := service(t)
	h := s.Router().Get()

	w, out := do(t, h, http.MethodGet, "/models", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"overwritten_users", "users"}, out["models"])

	w, out = do(t, h, http.MethodGet, "/models/overwritten_users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users", out["table"])
	assert.Equal(t, "users", out["parent"])
	columns := out["columns"].([]any)
	require.Len(t, columns, 2)
	bits := columns[0].(map[string]any)
	assert.Equal(t, "bits", bits["name"])
	assert.Equal(t, []any{map[string]any{"name": "seller_inherited", "bit": float64(1)}}, bits["flags"])
	assert.Equal(t, "in_list", columns[1].(map[string]any)["options"].(map[string]any)["query_mode"])

	w, out = do(t, h, http.MethodGet, "/models/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(404), out["code"])
	assert.Contains(t, out["message"], "ghost")
}

func TestScopes(t *testing.T) {
	s, _ := service(t)
	w, out := do(t, s.Router().Get(), http.MethodGet, "/models/users/scopes", "")
	assert.Equal(t, http.StatusOK, w.Code)
	scopes := out["scopes"].([]any)
	require.Len(t, scopes, 6)
	assert.Equal(t, map[string]any{"name": "seller", "flag": "seller", "value": true, "condition": "(users.bits & 1) = 1"}, scopes[0])
	assert.Equal(t, map[string]any{"name": "not_seller", "flag": "seller", "value": false, "condition": "(users.bits & 1) = 0"}, scopes[1])
}

func TestWhere(t *testing.T) {
	s, _ := service(t)
	h := s.Router().Get()
	for want, body := range map[string]string{
		"(users.bits & 3) = 1":                                `{"flags":{"seller":true,"insane":false}}`,
		"(users.bits & 3) = 1 AND users.more_bits IN (2)":     `{"flags":{"seller":1,"insane":"f","two":"true","one":0,"four":false}}`,
		"(users.bits & 1) <> 0 OR (users.bits & 2) <> 2":      `{"flags":{"seller":"t","insane":false},"mode":"bit_operator_or"}`,
		"users.bits IN (1,5)":                                 `{"flags":{"seller":"1","insane":"0"},"mode":"in_list"}`,
		"":                                                    `{}`,
	} {
		w, out := do(t, h, http.MethodPost, "/models/users/where", body)
		require.Equal(t, http.StatusOK, w.Code, body)
		assert.Equal(t, want, out["sql"], body)
	}

	w, out := do(t, h, http.MethodPost, "/models/users/where", `{"flags":{"ghost":true}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["message"], "ghost")

	w, _ = do(t, h, http.MethodPost, "/models/users/where", `{"flags":{"seller":true},"mode":"fuzzy"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/models/users/where", `{"flags":[1]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/models/users/where", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodGet, "/models/users/where", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUpdateAndBits(t *testing.T) {
	s, _ := service(t)
	h := s.Router().Get()
	w, out := do(t, h, http.MethodPost, "/models/users/update", `{"flags":{"seller":false,"insane":true,"one":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bits = (bits | 3) - 1, more_bits = (more_bits | 1) - 0", out["sql"])

	w, out = do(t, h, http.MethodPost, "/models/users/bits", `{"flags":{"seller":true,"stupid":true,"four":1}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"bits": float64(5), "more_bits": float64(4)}, out["bits"])

	w, _ = do(t, h, http.MethodPost, "/models/overwritten_users/update", `{"flags":{"seller":true}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJWTAndCORS(t *testing.T) {
	s, c := service(t)
	tk, err := ConfigJwt(c)
	require.NoError(t, err)
	h := s.Router().WithCORS(c).WithJWT(tk, "/metrics").Get()

	w, out := do(t, h, http.MethodGet, "/models", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, float64(401), out["code"])

	token, err := tk.Generate("tester")
	require.NoError(t, err)
	claims, err := tk.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "tester", claims.Subject)

	r := httptest.NewRequest(http.MethodGet, "/models", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, r)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "https://example.com", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type,Authorization", rw.Header().Get("Access-Control-Allow-Headers"))

	r.Header.Set("Authorization", "Bearer "+token+"x")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, r)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)

	_, err = ConfigJwt(conf.Parse(`jwt { sign: RS256, secret: x }`))
	assert.Error(t, err)
	_, err = ConfigJwt(conf.Parse(`jwt { sign: HS256 }`))
	assert.Error(t, err)
}
