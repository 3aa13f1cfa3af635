// Package version orders RPM version-release strings.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	rpmutils "github.com/sassoftware/go-rpmutils"
)

// Ordering is the result of comparing two versions
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns the string representation of Ordering
func (o Ordering) String() string {
	switch o {
	case Less:
		return "LESS"
	case Equal:
		return "EQUAL"
	case Greater:
		return "GREATER"
	default:
		return "UNKNOWN"
	}
}

// segmentPattern matches the characters rpm accepts in a version or release
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._+~^]+$`)

// ParseError reports a malformed version-release string
type ParseError struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// EVR is a parsed epoch, version and release
type EVR struct {
	Epoch   int
	Version string
	Release string
}

// String returns the EVR in epoch:version-release form, omitting a zero
// epoch and an empty release
func (e EVR) String() string {
	s := e.Version
	if e.Epoch != 0 {
		s = strconv.Itoa(e.Epoch) + ":" + s
	}
	if e.Release != "" {
		s += "-" + e.Release
	}
	return s
}

// New validates the parts of an EVR
func New(epoch int, version, release string) (EVR, error) {
	input := EVR{Epoch: epoch, Version: version, Release: release}.String()
	if epoch < 0 {
		return EVR{}, &ParseError{Input: input, Reason: "negative epoch"}
	}
	if version == "" {
		return EVR{}, &ParseError{Input: input, Reason: "empty version"}
	}
	if !segmentPattern.MatchString(version) {
		return EVR{}, &ParseError{Input: input, Reason: "unexpected character in version"}
	}
	if release != "" && !segmentPattern.MatchString(release) {
		return EVR{}, &ParseError{Input: input, Reason: "unexpected character in release"}
	}
	return EVR{Epoch: epoch, Version: version, Release: release}, nil
}

// Parse parses a string of the form [epoch:]version[-release]. The release
// starts after the last dash.
func Parse(s string) (EVR, error) {
	v, r := s, ""
	if i := strings.LastIndex(s, "-"); i >= 0 {
		v, r = s[:i], s[i+1:]
		if r == "" {
			return EVR{}, &ParseError{Input: s, Reason: "empty release"}
		}
	}
	return ParseVersion(v, r)
}

// ParseVersion parses a version carrying an optional epoch prefix, paired
// with a separate release
func ParseVersion(version, release string) (EVR, error) {
	epoch := 0
	if i := strings.Index(version, ":"); i >= 0 {
		e, err := strconv.Atoi(version[:i])
		if err != nil || version[:i] == "" || strings.ContainsAny(version[:i], "+-") {
			return EVR{}, &ParseError{Input: version, Reason: "epoch is not a number"}
		}
		epoch = e
		version = version[i+1:]
		if strings.Contains(version, ":") {
			return EVR{}, &ParseError{Input: version, Reason: "more than one epoch separator"}
		}
	}
	return New(epoch, version, release)
}

// CompareEVR orders two parsed EVRs: epoch first, then version, then release
func CompareEVR(a, b EVR) Ordering {
	switch {
	case a.Epoch < b.Epoch:
		return Less
	case a.Epoch > b.Epoch:
		return Greater
	}
	if c := rpmutils.Vercmp(a.Version, b.Version); c != 0 {
		return sign(c)
	}
	return sign(rpmutils.Vercmp(a.Release, b.Release))
}

func sign(c int) Ordering {
	switch {
	case c < 0:
		return Less
	case c > 0:
		return Greater
	default:
		return Equal
	}
}

// Compare parses both version-release pairs and orders them
func Compare(versionA, releaseA, versionB, releaseB string) (Ordering, error) {
	a, err := ParseVersion(versionA, releaseA)
	if err != nil {
		return Equal, err
	}
	b, err := ParseVersion(versionB, releaseB)
	if err != nil {
		return Equal, err
	}
	return CompareEVR(a, b), nil
}
