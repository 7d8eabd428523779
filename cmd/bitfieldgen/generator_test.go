package main

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "package models\n\n" +
	"type User struct {\n" +
	"\tId       int64\n" +
	"\tBits     int64  `db:\"bits\" bitfield:\"seller,insane,stupid\"`\n" +
	"\tMoreBits uint8  `bitfield:\"seller_inherited,two;mode=in_list;scopes=false;accessors=false\"`\n" +
	"\tName     string `db:\"name\"`\n" +
	"}\n\n" +
	"type Other struct {\n" +
	"\tBits int `bitfield:\"x\"`\n" +
	"}\n"

func parse(t *testing.T, src string) []Model {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "models.go", src, 0)
	require.NoError(t, err)
	models, err := Collect(f, []string{"User"}, map[string]string{"User": "users"})
	require.NoError(t, err)
	return models
}

func TestParseTag(t *testing.T) {
	flags, opts, err := ParseTag("a, b ,c;mode=bit_operator_or;scopes=false")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, flags)
	assert.Equal(t, bitfield.Options{QueryMode: bitfield.BitOperatorOr, Scopes: false, Accessors: true}, opts)

	for _, bad := range []string{"", ";mode=in_list", "a;mode=fuzzy", "a;scopes=maybe", "a;color=red"} {
		_, _, err = ParseTag(bad)
		assert.Error(t, err, bad)
	}
}

func TestCollect(t *testing.T) {
	models := parse(t, source)
	require.Len(t, models, 1)
	m := models[0]
	assert.Equal(t, "User", m.Name)
	assert.Equal(t, "users", m.Table)
	assert.Equal(t, []Column{
		{Field: "Bits", Column: "bits", Type: "int64", Flags: []string{"seller", "insane", "stupid"}, Options: bitfield.DefaultOptions()},
		{Field: "MoreBits", Column: "more_bits", Type: "uint8", Flags: []string{"seller_inherited", "two"},
			Options: bitfield.Options{QueryMode: bitfield.InList, Scopes: false, Accessors: false}},
	}, m.Columns)

	d, err := m.Descriptor()
	require.NoError(t, err)
	where, err := d.Where(map[string]bool{"seller": true, "two": false})
	require.NoError(t, err)
	assert.Equal(t, "(users.bits & 1) = 1 AND users.more_bits IN (0,1)", where)
}

func TestCollectErrors(t *testing.T) {
	for name, src := range map[string]string{
		"not integer": "package m\ntype User struct {\n\tBits string `bitfield:\"a\"`\n}\n",
		"no field":    "package m\ntype User struct {\n\tBits int\n}\n",
		"two names":   "package m\ntype User struct {\n\tA, B int `bitfield:\"a\"`\n}\n",
		"bad tag":     "package m\ntype User struct {\n\tBits int `bitfield:\"a;mode=x\"`\n}\n",
	} {
		t.Run(name, func(t *testing.T) {
			f, err := parser.ParseFile(token.NewFileSet(), "m.go", src, 0)
			require.NoError(t, err)
			_, err = Collect(f, []string{"User"}, nil)
			assert.Error(t, err)
		})
	}
}

func TestRender(t *testing.T) {
	src, err := Render("models", parse(t, source))
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "// Code generated by bitfieldgen; DO NOT EDIT.")
	assert.Contains(t, out, "package models")
	assert.Contains(t, out, "UserSeller          int64 = 1")
	assert.Contains(t, out, "UserStupid          int64 = 4")
	assert.Contains(t, out, "UserSellerInherited uint8 = 1")
	assert.Contains(t, out, `d := bitfield.NewDescriptor("User", "users")`)
	assert.Contains(t, out, `d.DeclareNames("bits", []string{"seller", "insane", "stupid"}); err != nil`)
	assert.Contains(t, out, `d.DeclareNames("more_bits", []string{"seller_inherited", "two"}, bitfield.WithQueryMode(bitfield.InList), bitfield.WithScopes(false), bitfield.WithAccessors(false)); err != nil`)
	assert.Contains(t, out, "func (s *User) Insane() bool {\n\treturn bitfield.Test(s.Bits, UserInsane)\n}")
	assert.Contains(t, out, "func (s *User) SetInsane(v bool) {\n\ts.Bits = bitfield.Apply(s.Bits, UserInsane, v)\n}")
	assert.NotContains(t, out, "SetSellerInherited")
}

func TestRenderRejectsInvalidModels(t *testing.T) {
	many := make([]string, 9)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	_, err := Render("m", []Model{{Name: "U", Table: "u", Columns: []Column{{Field: "B", Column: "b", Type: "uint8", Flags: many, Options: bitfield.DefaultOptions()}}}})
	assert.Error(t, err)

	_, err = Render("m", []Model{{Name: "U", Table: "u", Columns: []Column{
		{Field: "A", Column: "a", Type: "int", Flags: []string{"x"}, Options: bitfield.DefaultOptions()},
		{Field: "B", Column: "b", Type: "int", Flags: []string{"x"}, Options: bitfield.DefaultOptions()},
	}}})
	assert.ErrorIs(t, err, bitfield.ErrDuplicateBitName)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "SellerInherited", camel("seller_inherited"))
	assert.Equal(t, "More", camel("more"))
	assert.Equal(t, "more_bits", snake("MoreBits"))
	assert.Equal(t, "user", snake("User"))
	assert.Equal(t, "http_flags", snake("HTTPFlags"))

	tables, err := parseTables([]string{"User=users"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"User": "users"}, tables)
	_, err = parseTables([]string{"User"})
	assert.Error(t, err)
}
