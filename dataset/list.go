package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadList reads a list of names, such as projects or images, from the given
// text file.  It should contain one name per line, blank lines and lines
// starting with # are ignored.
func LoadList(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var names []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return names, nil
}
