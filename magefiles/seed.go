//go:build mage

package main

import (
	"github.com/magefile/mage/sh"
)

// Seed ingests reference passages from corpus/sources/ into the corpus index.
func Seed() error {
	return sh.RunV("go", "run", cmdPkg, "corpus", "seed")
}
