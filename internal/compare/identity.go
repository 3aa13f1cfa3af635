package compare

import (
	"fmt"

	"github.com/ralt/branchdiff/internal/models"
)

// Identity returns the key a package is matched on across branches
func Identity(pkg models.Package, opts Options) string {
	switch opts.Mode {
	case ModeNeededSymbol:
		field := opts.SymbolField
		if field == "" {
			field = DefaultSymbolField
		}
		if symbol, ok := pkg.Field(field); ok {
			return fmt.Sprintf("%s:%s", pkg.Name, symbol)
		}
		return pkg.Name
	default:
		return pkg.Name
	}
}

// index groups the packages of one architecture by identity key
func index(set models.ArchPackageSet, opts Options) map[string][]models.Package {
	out := make(map[string][]models.Package, len(set))
	for _, pkgs := range set {
		for _, pkg := range pkgs {
			key := Identity(pkg, opts)
			out[key] = append(out[key], pkg)
		}
	}
	return out
}
