package models

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Package represents a binary package published in a branch
type Package struct {
	// Core metadata
	Name    string
	Epoch   int
	Version string
	Release string
	Arch    string

	// Build information reported by the package database
	Disttag   string
	Buildtime int64
	Source    string

	// Any other fields, passed through verbatim
	Extra map[string]json.RawMessage
}

type packageFields struct {
	Name      string `json:"name"`
	Epoch     int    `json:"epoch"`
	Version   string `json:"version"`
	Release   string `json:"release"`
	Arch      string `json:"arch"`
	Disttag   string `json:"disttag,omitempty"`
	Buildtime int64  `json:"buildtime,omitempty"`
	Source    string `json:"source,omitempty"`
}

var knownFields = []string{"name", "epoch", "version", "release", "arch", "disttag", "buildtime", "source"}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra
func (p *Package) UnmarshalJSON(data []byte) error {
	var f packageFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(raw, k)
	}

	*p = Package{
		Name:      f.Name,
		Epoch:     f.Epoch,
		Version:   f.Version,
		Release:   f.Release,
		Arch:      f.Arch,
		Disttag:   f.Disttag,
		Buildtime: f.Buildtime,
		Source:    f.Source,
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// MarshalJSON encodes the package as a flat object, pass-through fields included
func (p Package) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Extra)+len(knownFields))
	for k, v := range p.Extra {
		out[k] = v
	}
	out["name"] = p.Name
	out["epoch"] = p.Epoch
	out["version"] = p.Version
	out["release"] = p.Release
	out["arch"] = p.Arch
	if p.Disttag != "" {
		out["disttag"] = p.Disttag
	}
	if p.Buildtime != 0 {
		out["buildtime"] = p.Buildtime
	}
	if p.Source != "" {
		out["source"] = p.Source
	}
	return json.Marshal(out)
}

// EVR returns the epoch:version-release string, omitting a zero epoch
// and an empty release
func (p Package) EVR() string {
	s := p.Version
	if p.Epoch != 0 {
		s = strconv.Itoa(p.Epoch) + ":" + s
	}
	if p.Release != "" {
		s += "-" + p.Release
	}
	return s
}

// Field returns the string value of a named field, looking at the known
// fields first and then at the pass-through ones
func (p Package) Field(name string) (string, bool) {
	switch name {
	case "name":
		return p.Name, p.Name != ""
	case "version":
		return p.Version, p.Version != ""
	case "release":
		return p.Release, p.Release != ""
	case "arch":
		return p.Arch, p.Arch != ""
	case "disttag":
		return p.Disttag, p.Disttag != ""
	case "source":
		return p.Source, p.Source != ""
	}

	raw, ok := p.Extra[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// ArchPackageSet maps a package name to every record carrying that name
// within one architecture
type ArchPackageSet map[string][]Package

// Snapshot is the package universe of one branch, partitioned by architecture
type Snapshot struct {
	Branch string
	Arches map[string]ArchPackageSet
}

// NewSnapshot groups packages by architecture and name, keeping input order
// among records sharing a name
func NewSnapshot(branch string, packages []Package) *Snapshot {
	s := &Snapshot{
		Branch: branch,
		Arches: make(map[string]ArchPackageSet),
	}
	for _, pkg := range packages {
		set, ok := s.Arches[pkg.Arch]
		if !ok {
			set = make(ArchPackageSet)
			s.Arches[pkg.Arch] = set
		}
		set[pkg.Name] = append(set[pkg.Name], pkg)
	}
	return s
}

// Architectures returns the architecture names in sorted order
func (s *Snapshot) Architectures() []string {
	arches := make([]string, 0, len(s.Arches))
	for arch := range s.Arches {
		arches = append(arches, arch)
	}
	sort.Strings(arches)
	return arches
}

// Packages flattens the snapshot, ordered by architecture then name
func (s *Snapshot) Packages() []Package {
	var out []Package
	for _, arch := range s.Architectures() {
		set := s.Arches[arch]
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, set[name]...)
		}
	}
	return out
}

// Count returns the number of package records in the snapshot
func (s *Snapshot) Count() int {
	n := 0
	for _, set := range s.Arches {
		for _, pkgs := range set {
			n += len(pkgs)
		}
	}
	return n
}

// Filter returns a snapshot restricted to one architecture. The package
// sets are shared with the receiver, not copied.
func (s *Snapshot) Filter(arch string) *Snapshot {
	out := &Snapshot{
		Branch: s.Branch,
		Arches: make(map[string]ArchPackageSet),
	}
	if set, ok := s.Arches[arch]; ok {
		out.Arches[arch] = set
	}
	return out
}

type snapshotJSON struct {
	Branch   string    `json:"branch"`
	Packages []Package `json:"packages"`
}

// MarshalJSON encodes the snapshot as a flat package list
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	pkgs := s.Packages()
	if pkgs == nil {
		pkgs = []Package{}
	}
	return json.Marshal(snapshotJSON{Branch: s.Branch, Packages: pkgs})
}

// UnmarshalJSON rebuilds the per-architecture grouping from a flat list
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var v snapshotJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = *NewSnapshot(v.Branch, v.Packages)
	return nil
}
