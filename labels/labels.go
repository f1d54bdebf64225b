// Package labels reads the model's label list.
package labels

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Load reads one label per line, in model output order. Blank lines are
// skipped and surrounding whitespace is trimmed.
func Load(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening labels: %w", err)
	}
	defer f.Close()

	var labels []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}

	return labels, nil
}

// Displayed returns the labels meant for people: those not starting with an
// underscore, capitalised.
func Displayed(labels []string) []string {
	var out []string

	for _, l := range labels {
		if l == "" || strings.HasPrefix(l, "_") {
			continue
		}

		out = append(out, strings.ToUpper(l[:1])+l[1:])
	}

	return out
}
