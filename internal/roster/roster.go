// Package roster reads the list of contest nodes.
//
// A node file holds one identifier (usually an IP address) per line. Lines
// are trimmed; blank lines and lines starting with '#' are skipped.
package roster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flagpole/c2/internal/contest"
)

// Parse reads node identifiers from r in file order.
func Parse(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading node list: %w", contest.ErrConfig, err)
	}
	if err := contest.ValidateNodeIDs(ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Load parses the node file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contest.ErrConfig, err)
	}
	defer f.Close()

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}
