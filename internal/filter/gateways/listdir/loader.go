// Package listdir supplies filter-list text from a local directory. Every
// *.txt file in the directory is read in lexical order and the lines are
// concatenated into one ruleset, so operators can split lists across files
// (00-easylist.txt, 10-local.txt) and control ordering by name.
package listdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads every *.txt file under dir and returns the concatenated lines.
// It returns an error when the directory cannot be read or contains no list
// files, since publishing an empty ruleset would silently disable filtering.
func Load(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading list directory %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.txt list files in %q", dir)
	}
	sort.Strings(files)

	var lines []string
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading list file %q: %w", name, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines, nil
}
