package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ChezJrk/exo/memory"
)

// Build-time variables injected via linker flags:
//
//	go build -ldflags "-X main.Version=$(git describe --tags) ..." -o exocc
//
// The defaults below are what a plain "go build" produces.
// See: https://pkg.go.dev/cmd/link (-X importpath.name=value)
var (
	Version   = "dev"     // Overwritten with git tag (e.g., "v0.3.0")
	Commit    = "unknown" // Overwritten with git commit hash
	BuildDate = "unknown" // Overwritten with build timestamp
)

// printVersion prints version information to stdout.
func printVersion() {
	fmt.Printf("exocc %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  memories: %s\n", strings.Join(memory.Names(), ", "))
	if Commit != "unknown" {
		fmt.Printf("  commit: %s\n", Commit)
	}
	if BuildDate != "unknown" {
		fmt.Printf("  built:  %s\n", BuildDate)
	}
}
