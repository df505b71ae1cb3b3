package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"tandem/internal/puzzle"
)

//go:embed preloaded.yaml
var preloadedYAML []byte

// Preloaded returns the bundled cold-start puzzle for a variant, used before
// the first catalog fetch succeeds.
func Preloaded(variant string) (*puzzle.Puzzle, error) {
	var doc struct {
		Puzzles []puzzle.Puzzle `yaml:"puzzles"`
	}
	if err := yaml.Unmarshal(preloadedYAML, &doc); err != nil {
		return nil, fmt.Errorf("decode preloaded puzzles: %w", err)
	}
	for i := range doc.Puzzles {
		if doc.Puzzles[i].Variant == variant {
			if err := doc.Puzzles[i].Validate(); err != nil {
				return nil, err
			}
			return &doc.Puzzles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no preloaded %s puzzle", ErrNotFound, variant)
}
