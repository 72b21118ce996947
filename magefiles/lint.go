//go:build mage

package main

import "github.com/magefile/mage/sh"

const (
	binLint     = "golangci-lint"
	lintTimeout = "5m"
)

// Lint vets every orgctl package, then runs golangci-lint over the tree.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "--timeout", lintTimeout, "./...")
}
