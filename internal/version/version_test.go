package version

import (
	"errors"
	"testing"

	rpmversion "github.com/knqyf263/go-rpm-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  EVR
	}{
		{"1.2-1", EVR{Epoch: 0, Version: "1.2", Release: "1"}},
		{"2:1.2-alt1", EVR{Epoch: 2, Version: "1.2", Release: "alt1"}},
		{"1.0", EVR{Version: "1.0"}},
		{"1.0~rc1-alt0.1", EVR{Version: "1.0~rc1", Release: "alt0.1"}},
		{"0:5.4-alt1.git.abc", EVR{Version: "5.4", Release: "alt1.git.abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"-1",
		"1.0-",
		"a:1.0-1",
		"1:2:3-1",
		"1.0 beta-1",
		"1.0-alt 1",
		"-1:1.0-1",
		"1.0/2-1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name                 string
		va, ra, vb, rb       string
		want                 Ordering
	}{
		{"newer version", "1.2", "1", "1.1", "1", Greater},
		{"older version", "1.1", "1", "1.2", "1", Less},
		{"identical", "1.2", "alt1", "1.2", "alt1", Equal},
		{"release decides", "1.2", "alt2", "1.2", "alt1", Greater},
		{"numeric not lexical", "1.10", "1", "1.9", "1", Greater},
		{"leading zeros ignored", "1.01", "1", "1.1", "1", Equal},
		{"epoch wins", "1:1.0", "1", "2.0", "1", Greater},
		{"explicit zero epoch", "0:1.0", "1", "1.0", "1", Equal},
		{"numeric beats alpha", "1.1", "1", "1.a", "1", Greater},
		{"longer wins", "1.0.1", "1", "1.0", "1", Greater},
		{"tilde sorts first", "1.0~rc1", "1", "1.0", "1", Less},
		{"tilde ordering", "1.0~rc2", "1", "1.0~rc1", "1", Greater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.va, tt.ra, tt.vb, tt.rb)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// The relation must be antisymmetric.
			rev, err := Compare(tt.vb, tt.rb, tt.va, tt.ra)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, rev)
		})
	}
}

func TestCompareMalformed(t *testing.T) {
	_, err := Compare("1.0 beta", "1", "1.0", "1")
	require.Error(t, err)

	_, err = Compare("1.0", "1", "", "1")
	require.Error(t, err)
}

// TestCompareAgreesWithRpmVersion cross-checks the ordering against an
// independent implementation of rpm's version comparison.
func TestCompareAgreesWithRpmVersion(t *testing.T) {
	versions := []string{
		"1.0-1",
		"1.0-2",
		"1.0.1-1",
		"1.1-1",
		"1.10-1",
		"2.0-alt1",
		"2.0-alt1.1",
		"2.0a-1",
		"2.0b-1",
		"1:0.9-1",
		"3.2.1-alt0.M80P.1",
		"20240101-alt1",
	}

	for _, a := range versions {
		for _, b := range versions {
			ea, err := Parse(a)
			require.NoError(t, err)
			eb, err := Parse(b)
			require.NoError(t, err)

			want := rpmversion.NewVersion(a).Compare(rpmversion.NewVersion(b))
			got := CompareEVR(ea, eb)
			assert.Equal(t, sign(want), got, "%s vs %s", a, b)
		}
	}
}

func TestEVRString(t *testing.T) {
	assert.Equal(t, "1.2-alt1", EVR{Version: "1.2", Release: "alt1"}.String())
	assert.Equal(t, "3:1.2-alt1", EVR{Epoch: 3, Version: "1.2", Release: "alt1"}.String())
	assert.Equal(t, "1.2", EVR{Version: "1.2"}.String())
}
