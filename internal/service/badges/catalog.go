package badges

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/connectthrive/community-engine/internal/models"
)

// catalogFile is the on-disk shape of the badge catalog.
type catalogFile struct {
	Badges []catalogEntry `yaml:"badges"`
}

type catalogEntry struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Icon           string `yaml:"icon"`
	Category       string `yaml:"category"`
	Rarity         string `yaml:"rarity"`
	PointsRequired int    `yaml:"points_required"`
	BonusPoints    int    `yaml:"bonus_points"`
}

// LoadCatalog reads and validates the static badge catalog. The catalog is
// reference data: it is loaded at process start and never mutated at
// runtime.
func LoadCatalog(path string) ([]models.Badge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse badge catalog: %w", err)
	}
	if len(file.Badges) == 0 {
		return nil, fmt.Errorf("badge catalog %s contains no badges", path)
	}

	seen := make(map[string]bool, len(file.Badges))
	badges := make([]models.Badge, 0, len(file.Badges))
	for i, entry := range file.Badges {
		if entry.ID == "" || entry.Name == "" {
			return nil, fmt.Errorf("badge catalog entry %d is missing id or name", i)
		}
		if entry.PointsRequired <= 0 {
			return nil, fmt.Errorf("badge %s requires a positive points threshold", entry.ID)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("badge catalog contains duplicate id %s", entry.ID)
		}
		seen[entry.ID] = true

		badges = append(badges, models.Badge{
			ID:             entry.ID,
			Name:           entry.Name,
			Description:    entry.Description,
			Icon:           entry.Icon,
			Category:       entry.Category,
			Rarity:         entry.Rarity,
			PointsRequired: entry.PointsRequired,
			BonusPoints:    entry.BonusPoints,
		})
	}

	return badges, nil
}
