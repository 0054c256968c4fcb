package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// isHashDir returns true if name is an 8-char hex string (matches shortHash format).
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// metadataHash hashes the compiler identity that affects the generated
// C, so outputs restage when the compiler changes.
func metadataHash(h hash.Hash) {
	h.Write([]byte(Version))
	h.Write([]byte(Commit))
}

// outputsInfo computes the SHA256 hash of the package sources.
// Returns short hash (8 chars for directory name) and full hash (for
// collision check).
func outputsInfo(srcs []exoSource) (shortHash, fullHash string) {
	h := sha256.New()
	metadataHash(h)
	for _, src := range srcs {
		h.Write([]byte(src.Name))
		h.Write([]byte(src.Text))
	}
	fullHash = hex.EncodeToString(h.Sum(nil))
	shortHash = fullHash[:8]
	return shortHash, fullHash
}

// outputFiles lists the generated sources and headers under outDir.
func outputFiles(outDir string) ([]string, error) {
	cs, err := filepath.Glob(filepath.Join(outDir, "*"+C_SUFFIX))
	if err != nil {
		return nil, fmt.Errorf("glob staged outputs: %w", err)
	}
	hs, err := filepath.Glob(filepath.Join(outDir, "*"+H_SUFFIX))
	if err != nil {
		return nil, fmt.Errorf("glob staged outputs: %w", err)
	}
	return append(cs, hs...), nil
}

// cleanupOldOutputs removes old staged hash directories.
// Only deletes directories older than minAge AND keeps at least 'keep' most recent.
// This prevents deleting outputs that may still be in use by concurrent processes.
func cleanupOldOutputs(stagedDir string, keep int, minAge int64) {
	entries, err := os.ReadDir(stagedDir)
	if err != nil || len(entries) <= keep {
		return
	}

	// Filter to hash directories (8-char hex names) with their mod times
	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}

	if len(dirs) <= keep {
		return
	}

	// Sort by mtime ascending (oldest first), remove oldest if older than minAge
	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(stagedDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Printf("warning: failed to remove old outputs %s: %v\n", path, err)
			}
		}
	}
}

// prepareOutputs stages every source of the package and lowers it to C
// under a hash-based directory, so unchanged packages reuse cached
// outputs across runs. A file lock ensures concurrent processes see
// either fully staged outputs or build them. Returns the cached paths
// of the generated .c and .h files.
func prepareOutputs(cacheDir, pkg string, srcs []exoSource) ([]string, error) {
	stagedDir := filepath.Join(cacheDir, pkg, STAGED_DIR)
	if err := os.MkdirAll(stagedDir, 0755); err != nil {
		return nil, fmt.Errorf("create staged dir: %w", err)
	}

	// Lock the entire operation
	lock := flock.New(filepath.Join(stagedDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire staging lock: %w", err)
	}
	defer lock.Unlock()

	shortHash, fullHash := outputsInfo(srcs)
	outDir := filepath.Join(stagedDir, shortHash)
	hashFile := filepath.Join(outDir, ".hash")

	// Check if already staged (verify output count and full hash match)
	if outs, err := outputFiles(outDir); err == nil && len(outs) == 2*len(srcs) {
		// Verify full hash to detect collisions
		if storedHash, err := os.ReadFile(hashFile); err == nil && string(storedHash) == fullHash {
			fmt.Printf("Using cached outputs: %s\n", outDir)
			return outs, nil
		}
		// Hash collision or corrupted cache - restage
		fmt.Printf("Output hash mismatch, restaging: %s\n", outDir)
		os.RemoveAll(outDir)
	}

	// Cleanup old staged versions (keep 5 most recent, only delete if older than 1 week)
	cleanupOldOutputs(stagedDir, 5, 7*24*60*60)

	fmt.Printf("Staging package: %s\n", outDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var outs []string
	for _, src := range srcs {
		csrc, hdr, err := stageSource(src)
		if err != nil {
			return nil, err
		}
		cPath := filepath.Join(outDir, src.Name+C_SUFFIX)
		if err := os.WriteFile(cPath, []byte(csrc), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", cPath, err)
		}
		hPath := filepath.Join(outDir, src.Name+H_SUFFIX)
		if err := os.WriteFile(hPath, []byte(hdr), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", hPath, err)
		}
		outs = append(outs, cPath, hPath)
	}
	// Store full hash after successful staging (acts as completion marker)
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, fmt.Errorf("write hash file: %w", err)
	}
	return outs, nil
}
