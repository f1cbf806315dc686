package ingest

import (
	"fmt"

	"github.com/ewhitmore/haulfit/internal/models"
)

// Validate checks dataset shape before anything downstream runs. All
// violations are fatal; the comparison depends on the block partition
// being correct and stable.
func Validate(obs []models.Observation) error {
	if len(obs) == 0 {
		return fmt.Errorf("validate: empty dataset")
	}

	// A (subject, block) run must be contiguous: once it ends, the same
	// block id must not reappear for that subject.
	type key struct{ subject, block string }
	closed := make(map[key]bool)
	var prev key

	for i, o := range obs {
		if o.Dry != 0 && o.Dry != 1 {
			return fmt.Errorf("validate: row %d: dry must be 0 or 1, got %d", i, o.Dry)
		}
		if o.Yday < 1 || o.Yday > 366 {
			return fmt.Errorf("validate: row %d: yday %d out of range", i, o.Yday)
		}
		if o.SolarHour < 0 || o.SolarHour > 23 {
			return fmt.Errorf("validate: row %d: solar_hour %d out of range", i, o.SolarHour)
		}
		if o.BlockID == "" || o.SubjectID == "" {
			return fmt.Errorf("validate: row %d: missing subject or block id", i)
		}

		k := key{o.SubjectID, o.BlockID}
		if k != prev {
			if closed[k] {
				return fmt.Errorf("validate: row %d: block %s reappears for subject %s after its run ended", i, o.BlockID, o.SubjectID)
			}
			if i > 0 {
				closed[prev] = true
			}
			if !o.StartOfBlock {
				return fmt.Errorf("validate: row %d: first row of block %s/%s not marked start", i, o.SubjectID, o.BlockID)
			}
			prev = k
		} else if i > 0 && o.StartOfBlock {
			return fmt.Errorf("validate: row %d: start flag inside block %s/%s", i, o.SubjectID, o.BlockID)
		}
	}
	return nil
}
