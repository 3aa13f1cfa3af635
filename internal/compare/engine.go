// Package compare computes per-architecture differences between two branch
// snapshots.
package compare

import (
	"sort"

	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/version"
	"github.com/sirupsen/logrus"
)

// Newer is a package of the first branch whose version stands in the
// requested relation to the second branch's version
type Newer struct {
	Package       models.Package
	FirstVersion  string
	SecondVersion string
}

// Result holds the differences found in one architecture
type Result struct {
	SecondOnly   []models.Package
	FirstOnly    []models.Package
	NewerInFirst []Newer
	// Skipped collects the version parse errors of pairs left out
	Skipped []error
}

// Diff compares two snapshots architecture by architecture. A record with a
// malformed version is left out of every set and reported in Skipped, on
// either side and whether or not the other branch has it. Neither input is
// modified.
func Diff(first, second *models.Snapshot, opts Options) map[string]*Result {
	arches := make(map[string]struct{})
	for arch := range first.Arches {
		arches[arch] = struct{}{}
	}
	for arch := range second.Arches {
		arches[arch] = struct{}{}
	}

	results := make(map[string]*Result, len(arches))
	for arch := range arches {
		results[arch] = diffArch(arch, first.Arches[arch], second.Arches[arch], opts)
	}
	return results
}

func diffArch(arch string, first, second models.ArchPackageSet, opts Options) *Result {
	a := index(first, opts)
	b := index(second, opts)
	res := &Result{}

	for _, key := range sortedKeys(b) {
		if _, ok := a[key]; !ok {
			res.SecondOnly = append(res.SecondOnly, res.wellFormed(arch, b[key])...)
		}
	}

	for _, key := range sortedKeys(a) {
		other, ok := b[key]
		if !ok {
			res.FirstOnly = append(res.FirstOnly, res.wellFormed(arch, a[key])...)
			continue
		}

		pkg, evrA, err := newest(a[key])
		if err != nil {
			res.skip(arch, a[key][0].Name, err)
			continue
		}
		_, evrB, err := newest(other)
		if err != nil {
			res.skip(arch, other[0].Name, err)
			continue
		}

		if opts.Relation.Holds(version.CompareEVR(evrA, evrB)) {
			res.NewerInFirst = append(res.NewerInFirst, Newer{
				Package:       pkg,
				FirstVersion:  evrA.String(),
				SecondVersion: evrB.String(),
			})
		}
	}

	sortPackages(res.SecondOnly)
	sortPackages(res.FirstOnly)
	sort.SliceStable(res.NewerInFirst, func(i, j int) bool {
		return res.NewerInFirst[i].Package.Name < res.NewerInFirst[j].Package.Name
	})
	return res
}

func (r *Result) skip(arch, name string, err error) {
	logrus.Warnf("Skipping %s/%s: %v", arch, name, err)
	r.Skipped = append(r.Skipped, models.NewError(models.ErrVersionParse, arch+"/"+name, err))
}

// wellFormed drops, and records as skipped, the packages whose version
// does not parse
func (r *Result) wellFormed(arch string, pkgs []models.Package) []models.Package {
	out := make([]models.Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		if _, err := version.New(pkg.Epoch, pkg.Version, pkg.Release); err != nil {
			r.skip(arch, pkg.Name, err)
			continue
		}
		out = append(out, pkg)
	}
	return out
}

// newest returns the package with the highest EVR among records sharing a
// key. Any malformed version fails the whole group.
func newest(pkgs []models.Package) (models.Package, version.EVR, error) {
	var best models.Package
	var bestEVR version.EVR
	for i, pkg := range pkgs {
		evr, err := version.New(pkg.Epoch, pkg.Version, pkg.Release)
		if err != nil {
			return models.Package{}, version.EVR{}, err
		}
		if i == 0 || version.CompareEVR(evr, bestEVR) == version.Greater {
			best, bestEVR = pkg, evr
		}
	}
	return best, bestEVR, nil
}

func sortedKeys(m map[string][]models.Package) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortPackages(pkgs []models.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Name != pkgs[j].Name {
			return pkgs[i].Name < pkgs[j].Name
		}
		return pkgs[i].EVR() < pkgs[j].EVR()
	})
}
