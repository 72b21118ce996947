//go:build mage

// Package main holds the Mage targets for the orgctl relationship store.
//
// Usage:
//
//	mage build          Compile orgctl into bin/
//	mage test:all       Run every package test
//	mage test:race      Run every package test with the race detector
//	mage test:cover     Write bin/coverage.out and print the summary
//	mage lint           go vet, then golangci-lint
//	mage clean          Remove bin/
//	mage install        Copy orgctl into GOPATH/bin
//	mage serve          Build orgctl and serve the JSON API
//	mage stats          Print Go line counts per top-level directory
package main

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "orgctl"
	binaryDir  = "bin"
	cmdDir     = "./cmd/orgctl"
)

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}

// Build compiles orgctl into bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-trimpath", "-o", binaryPath(), cmdDir)
}

// Clean removes bin/ and the go build cache entries for this module.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds orgctl and copies it into GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}

// Serve builds orgctl and runs "orgctl serve" with the user's config.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath(), "serve")
}

// lineCount is production and test lines under one directory.
type lineCount struct {
	prod, test int
}

// Stats prints Go line counts for cmd/, internal/ and pkg/.
func Stats() error {
	counts := map[string]*lineCount{}
	for _, root := range []string{"cmd", "internal", "pkg"} {
		counts[root] = &lineCount{}
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
				return err
			}
			n, err := countLines(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(path, "_test.go") {
				counts[root].test += n
			} else {
				counts[root].prod += n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var total lineCount
	for _, root := range slices.Sorted(maps.Keys(counts)) {
		c := counts[root]
		fmt.Printf("%-9s production %6d  tests %6d\n", root+"/", c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-9s production %6d  tests %6d\n", "total", total.prod, total.test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
