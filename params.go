package consensus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Params defines the struct containing the parameters used when computing
// consensus over a dataset
type Params struct {
	// Workers is the number of images matched concurrently
	Workers int `json:"workers"`
	// MatchDisjoint allows areal instances with no overlap at all to be
	// matched into the same cluster, as long as they share a class
	MatchDisjoint bool `json:"match_disjoint"`
	// Images restricts consensus to the named images, all images are used
	// when empty
	Images []string `json:"images,omitempty"`
	// Projects is the dataset wide project list that defines the score
	// columns and the scoring denominator.  When empty it is derived from
	// the rows being scored.
	Projects []string `json:"projects,omitempty"`
}

// DefaultParams returns the default consensus parameters
func DefaultParams() Params {
	return Params{
		Workers: runtime.NumCPU(),
	}
}

// LoadParams reads Params from a JSON file.  Fields omitted from the file
// keep their default values.
func LoadParams(path string) (Params, error) {

	params := DefaultParams()

	cleanPath := filepath.Clean(path)

	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return params, fmt.Errorf("params file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return params, fmt.Errorf("error reading params file: %w", err)
	}

	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("error parsing params file: %w", err)
	}

	if params.Workers < 1 {
		return params, fmt.Errorf("workers must be at least 1, got %d", params.Workers)
	}

	return params, nil
}
