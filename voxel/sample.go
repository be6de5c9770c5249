package voxel

import (
	"fmt"
	"strconv"
)

// seedStride spaces per-sample seeds far enough apart that consecutive
// sample identifiers never collide for realistic batch sizes.
const seedStride = 17 * 31 * 53

// SampleSeed derives the deterministic per-sample random seed from a base
// seed and a decimal sample identifier. The mixing formula is fixed: it is
// the sole source of reproducibility and must not change between releases.
func SampleSeed(baseSeed int64, sampleID string) (int64, error) {
	n, err := strconv.ParseInt(sampleID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sample ID %q is not a valid integer string", sampleID)
	}
	return baseSeed + seedStride*n, nil
}

// ValidateSampleID checks that a sample identifier is a decimal string of
// exactly the required width.
func ValidateSampleID(sampleID string, requiredDigits int) error {
	if len(sampleID) != requiredDigits {
		return fmt.Errorf("sample ID %q does not match required length of %d digits", sampleID, requiredDigits)
	}
	if _, err := strconv.ParseInt(sampleID, 10, 64); err != nil {
		return fmt.Errorf("sample ID %q is not a valid integer string", sampleID)
	}
	return nil
}
