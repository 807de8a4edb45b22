package detections

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class names the model was trained with, one label
// per line. Blank lines are skipped.
func LoadLabels(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", file)
	}

	return labels, nil
}
