package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IntegrityResult collects the outcome of verifying a config directory
// against its .checksums manifest.
type IntegrityResult struct {
	Passed   bool
	Warnings []string
	Errors   []string
}

// VerifyIntegrity checks all discovered files against the .checksums
// manifest. High-security mismatches (tool scripts) produce errors and fail
// the check; operational mismatches produce warnings only.
func VerifyIntegrity(configDir string, files *ConfigFiles) (*IntegrityResult, error) {
	result := &IntegrityResult{Passed: true}

	checksumPath := filepath.Join(configDir, ".checksums")
	manifest, err := LoadChecksums(configDir)
	if err != nil {
		highSec := files.HighSecurityFiles()
		if len(highSec) > 0 {
			result.Passed = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("no .checksums manifest found at %s but tool scripts exist; run 'stagehand config lock'", checksumPath))
			return result, nil
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no .checksums manifest found at %s; run 'stagehand config lock' to enable integrity verification", checksumPath))
		return result, nil
	}

	seen := make(map[string]bool)
	for _, path := range files.AllFiles() {
		rel := files.RelPath(path)
		seen[rel] = true
		tier := files.FileTier(path)

		expectedHash, inManifest := manifest.Hashes[rel]
		if !inManifest {
			result.record(tier, fmt.Sprintf("file %s not in .checksums manifest", rel))
			continue
		}

		actualHash, err := ComputeBlake3Hash(path)
		if err != nil {
			result.record(tier, fmt.Sprintf("failed to hash %s: %v", rel, err))
			continue
		}

		if actualHash != expectedHash {
			result.record(tier, fmt.Sprintf("hash mismatch for %s (expected %s, got %s)", rel, expectedHash, actualHash))
		}
	}

	// Locked files that vanished from disk are suspicious too.
	for rel := range manifest.Hashes {
		if seen[rel] {
			continue
		}
		tier := TierOperational
		if strings.HasSuffix(rel, ".lua") {
			tier = TierHighSecurity
		}
		result.record(tier, fmt.Sprintf("file %s is in .checksums but missing from disk", rel))
	}

	return result, nil
}

func (r *IntegrityResult) record(tier Tier, msg string) {
	if tier == TierHighSecurity {
		r.Passed = false
		r.Errors = append(r.Errors, msg)
		return
	}
	r.Warnings = append(r.Warnings, msg)
}
