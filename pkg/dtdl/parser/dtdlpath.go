package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathEnvVar names the environment variable holding the semicolon separated
// list of base directories searched for context files and model fixtures.
const PathEnvVar = "DTDL_PATH"

// FindFile resolves relative against each directory of the semicolon
// separated searchList in order and returns the first path that exists.
func FindFile(searchList, relative string) (string, error) {
	var tried []string
	for _, dir := range strings.Split(searchList, ";") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	return "", fmt.Errorf("%q not found in any of %v", relative, tried)
}

// FindFileFromEnv is FindFile over the DTDL_PATH environment variable.
func FindFileFromEnv(relative string) (string, error) {
	return FindFile(os.Getenv(PathEnvVar), relative)
}
