package flags

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed currency_flags.json
var defaultTable []byte

// LoadTable reads a JSON object of currency code to image URL. An empty path
// selects the built-in table. Keys are upper-cased.
func LoadTable(path string) (map[string]string, error) {
	raw := defaultTable
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading flag table: %w", err)
		}
		raw = data
	}

	var parsed map[string]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing flag table: %w", err)
	}

	table := make(map[string]string, len(parsed))
	for code, url := range parsed {
		table[normalize(code)] = url
	}
	return table, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func sortedCodes(table map[string]string) []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
