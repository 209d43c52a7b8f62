//go:build basic || database

// Package integration contains integration tests for fairspot.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Database backends need Docker: go test -tags database ./integration
package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedFairspotPath holds the path to a shared fairspot binary built once for all tests.
	sharedFairspotPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getFairspotBinary returns the path to the fairspot binary, building it once if needed.
func getFairspotBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "fairspot-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		fairspotPath := filepath.Join(tempDir, "fairspot")
		buildCmd := exec.Command("go", "build", "-o", fairspotPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build fairspot: %v", err))
		}

		sharedFairspotPath = fairspotPath
	})

	return sharedFairspotPath
}

// loansCSV has selection rates of 0.5 for X (4 records) and 1/6 for Y (6 records).
const loansCSV = `race,sex,repaid,approved
X,F,1,1
X,M,1,1
X,F,0,0
X,M,0,0
Y,F,1,1
Y,M,1,0
Y,F,0,0
Y,M,0,0
Y,F,1,0
Y,M,0,0
`

// writeDataset writes loansCSV into a fresh temp directory.
func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loans.csv")
	require.NoError(t, os.WriteFile(path, []byte(loansCSV), 0o644))
	return path
}

// runFairspot runs the binary and returns its combined output.
func runFairspot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getFairspotBinary(), args...)
	cmd.Dir = t.TempDir()
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", strings.Join(cmd.Args, " "), string(output))
	}
	return string(output), err
}
