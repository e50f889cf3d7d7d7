package models

import "github.com/samber/lo"

// AggregateStatus derives the terminal status of one execution from its
// per-platform results: published when all succeeded, failed when none did,
// partial otherwise.
func AggregateStatus(results []PlatformResult) PostStatus {
	succeeded := CountSucceeded(results)
	switch {
	case len(results) > 0 && succeeded == len(results):
		return PostStatusPublished
	case succeeded == 0:
		return PostStatusFailed
	default:
		return PostStatusPartial
	}
}

func CountSucceeded(results []PlatformResult) int {
	return lo.CountBy(results, func(r PlatformResult) bool {
		return r.Status == ResultSuccess
	})
}
