package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageJSONPassThrough(t *testing.T) {
	in := `{"name":"curl","epoch":0,"version":"8.10.1","release":"alt1","arch":"x86_64",
		"disttag":"sisyphus+357","buildtime":1727000000,"source":"curl","hash":"123","license":null}`

	var p Package
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	assert.Equal(t, "curl", p.Name)
	assert.Equal(t, "sisyphus+357", p.Disttag)
	assert.Equal(t, int64(1727000000), p.Buildtime)
	assert.Len(t, p.Extra, 2)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestPackageJSONOmitsEmptyOptionalFields(t *testing.T) {
	out, err := json.Marshal(Package{Name: "foo", Version: "1", Release: "alt1", Arch: "noarch"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"foo","epoch":0,"version":"1","release":"alt1","arch":"noarch"}`, string(out))
}

func TestPackageEVR(t *testing.T) {
	assert.Equal(t, "1.2-alt1", Package{Version: "1.2", Release: "alt1"}.EVR())
	assert.Equal(t, "2:1.2-alt1", Package{Epoch: 2, Version: "1.2", Release: "alt1"}.EVR())
}

func TestPackageField(t *testing.T) {
	p := Package{
		Name:   "libfoo",
		Source: "foo",
		Extra: map[string]json.RawMessage{
			"provides": json.RawMessage(`"libfoo.so.1"`),
			"size":     json.RawMessage(`42`),
		},
	}

	v, ok := p.Field("source")
	assert.True(t, ok)
	assert.Equal(t, "foo", v)

	v, ok = p.Field("provides")
	assert.True(t, ok)
	assert.Equal(t, "libfoo.so.1", v)

	_, ok = p.Field("size")
	assert.False(t, ok, "non-string fields carry no symbol")

	_, ok = p.Field("disttag")
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot("p11", []Package{
		{Name: "b", Version: "1", Arch: "x86_64"},
		{Name: "a", Version: "2", Arch: "x86_64"},
		{Name: "a", Version: "1", Arch: "x86_64"},
		{Name: "c", Version: "1", Arch: "aarch64"},
	})

	assert.Equal(t, []string{"aarch64", "x86_64"}, s.Architectures())
	assert.Equal(t, 4, s.Count())
	assert.Len(t, s.Arches["x86_64"]["a"], 2)

	var order []string
	for _, p := range s.Packages() {
		order = append(order, p.Name+"-"+p.Version)
	}
	assert.Equal(t, []string{"c-1", "a-2", "a-1", "b-1"}, order)

	only := s.Filter("aarch64")
	assert.Equal(t, []string{"aarch64"}, only.Architectures())
	assert.Equal(t, 0, s.Filter("riscv64").Count())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, &back)
}

func TestIsType(t *testing.T) {
	inner := NewError(ErrVersionParse, "x86_64/foo", errors.New("bad"))
	outer := NewError(ErrFetch, "p11", fmt.Errorf("wrapped: %w", inner))

	assert.True(t, IsType(outer, ErrFetch))
	assert.True(t, IsType(outer, ErrVersionParse))
	assert.False(t, IsType(outer, ErrSigning))
	assert.False(t, IsType(errors.New("plain"), ErrFetch))
	assert.False(t, IsType(nil, ErrFetch))

	assert.Equal(t, "[Fetch] p11: wrapped: [VersionParse] x86_64/foo: bad", outer.Error())
}
