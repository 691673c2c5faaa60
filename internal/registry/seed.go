package registry

import (
	"context"
	"fmt"
)

// SeedIfEmpty inserts devices when the registry holds none and returns how
// many were added. A non-empty registry is left untouched.
func SeedIfEmpty(ctx context.Context, s Store, devices []Device) (int, error) {
	n, err := s.CountDevices(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	added := 0
	for _, d := range devices {
		if err := s.CreateDevice(ctx, d); err != nil {
			return added, fmt.Errorf("seed: %w", err)
		}
		added++
	}
	return added, nil
}
