package service

import "github.com/mlopezv/docsearch-ai/internal/domain"

// NoVersionLabel is the bucket for retrieved chunks without a version tag.
const NoVersionLabel = "No version available"

// GroupByVersion partitions retrieved chunks into version groups keyed
// 1..N in the order each distinct version value first appears — not
// sorted by version or score. Chunks without any provenance are dropped
// as malformed.
func GroupByVersion(retrieved []domain.RetrievedChunk) map[int][]domain.RetrievedChunk {
	var order []string
	buckets := make(map[string][]domain.RetrievedChunk)

	for _, rc := range retrieved {
		if !rc.HasProvenance() {
			continue
		}
		version := rc.Version
		if version == "" {
			version = NoVersionLabel
		}
		if _, seen := buckets[version]; !seen {
			order = append(order, version)
		}
		buckets[version] = append(buckets[version], rc)
	}

	groups := make(map[int][]domain.RetrievedChunk, len(order))
	for i, version := range order {
		groups[i+1] = buckets[version]
	}
	return groups
}
