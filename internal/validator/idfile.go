package validator

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadIDFile parses a test-item id list from a file. Supported line
// shapes: a bare id, a bulleted id ("* TE02.03.01"), and a labeled id
// ("ID: TE02.03.01"). Blank lines and lines starting with # are
// skipped. Duplicates keep their first position.
func ReadIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "validator: open id file %s", path)
	}
	defer f.Close()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if rest, ok := strings.CutPrefix(line, "ID:"); ok {
			line = strings.TrimSpace(rest)
		}
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "validator: read id file %s", path)
	}
	return ids, nil
}
