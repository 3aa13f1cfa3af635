package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ralt/branchdiff/internal/compare"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/utils"
)

// ArchReport is the report section of one architecture
type ArchReport struct {
	SecondOnlyCount   int              `json:"second_only_count"`
	SecondOnly        []models.Package `json:"second_only"`
	FirstOnlyCount    int              `json:"first_only_count"`
	FirstOnly         []models.Package `json:"first_only"`
	NewerInFirstCount int              `json:"newer_in_first_count"`
	NewerInFirst      []NewerEntry     `json:"newer_in_first"`
}

// NewerEntry is a package record extended with the versions found in both
// branches
type NewerEntry struct {
	Package       models.Package
	FirstVersion  string
	SecondVersion string
}

// MarshalJSON flattens the package fields next to both versions
func (n NewerEntry) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(n.Package)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	if out["first_branch_version"], err = json.Marshal(n.FirstVersion); err != nil {
		return nil, err
	}
	if out["second_branch_version"], err = json.Marshal(n.SecondVersion); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Report maps architecture names to their sections. encoding/json emits
// map keys sorted, so architectures come out in alphabetical order.
type Report map[string]*ArchReport

// Build converts diff results into a report
func Build(diffs map[string]*compare.Result) Report {
	r := make(Report, len(diffs))
	for arch, res := range diffs {
		ar := &ArchReport{
			SecondOnlyCount:   len(res.SecondOnly),
			SecondOnly:        nonNil(res.SecondOnly),
			FirstOnlyCount:    len(res.FirstOnly),
			FirstOnly:         nonNil(res.FirstOnly),
			NewerInFirstCount: len(res.NewerInFirst),
			NewerInFirst:      make([]NewerEntry, 0, len(res.NewerInFirst)),
		}
		for _, n := range res.NewerInFirst {
			ar.NewerInFirst = append(ar.NewerInFirst, NewerEntry{
				Package:       n.Package,
				FirstVersion:  n.FirstVersion,
				SecondVersion: n.SecondVersion,
			})
		}
		r[arch] = ar
	}
	return r
}

// Architectures returns the report's architectures in sorted order
func (r Report) Architectures() []string {
	arches := make([]string, 0, len(r))
	for arch := range r {
		arches = append(arches, arch)
	}
	sort.Strings(arches)
	return arches
}

// Summary renders one line of counts per architecture
func (r Report) Summary() []string {
	lines := make([]string, 0, len(r))
	for _, arch := range r.Architectures() {
		ar := r[arch]
		lines = append(lines, fmt.Sprintf("%s: second only %d, first only %d, newer in first %d",
			arch, ar.SecondOnlyCount, ar.FirstOnlyCount, ar.NewerInFirstCount))
	}
	return lines
}

// Encode renders the report as indented JSON
func (r Report) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write stores the report at path, replacing any previous file atomically
func Write(path string, r Report) ([]byte, error) {
	data, err := r.Encode()
	if err != nil {
		return nil, models.NewError(models.ErrFileOp, path, fmt.Errorf("failed to encode report: %w", err))
	}
	if err := utils.WriteFile(path, data, 0644); err != nil {
		return nil, models.NewError(models.ErrFileOp, path, fmt.Errorf("failed to write report: %w", err))
	}
	return data, nil
}

func nonNil(pkgs []models.Package) []models.Package {
	if pkgs == nil {
		return []models.Package{}
	}
	return pkgs
}
