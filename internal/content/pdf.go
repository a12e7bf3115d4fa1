package content

// PageBatches groups zero-based page indices into batches of batchSize with
// overlap shared pages between consecutive batches, so a provider processing
// batch N+1 sees the tail of batch N for context continuity. A document that
// fits in one batch is returned as a single batch. A final batch consisting
// only of overlap pages is merged into its predecessor.
func PageBatches(pageCount, batchSize, overlap int) [][]int {
	if pageCount <= 0 || batchSize <= 0 {
		return nil
	}
	if overlap >= batchSize {
		overlap = batchSize - 1
	}

	pages := make([]int, pageCount)
	for i := range pages {
		pages[i] = i
	}

	if pageCount <= batchSize {
		return [][]int{pages}
	}

	var batches [][]int
	stride := batchSize - overlap

	for i := 0; i < pageCount; i += stride {
		end := i + batchSize
		if end > pageCount {
			end = pageCount
		}
		batch := pages[i:end]

		if len(batch) <= overlap && len(batches) > 0 {
			batches[len(batches)-1] = mergePages(batches[len(batches)-1], batch)
		} else {
			batches = append(batches, batch)
		}

		if i+batchSize >= pageCount {
			break
		}
	}

	return batches
}

func mergePages(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	merged := make([]int, 0, len(a)+len(b))
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	return merged
}

// NewPagesInBatch returns the pages of batch that were not already covered
// by the preceding batch, so generated cards can be attributed to the pages
// first seen in that batch.
func NewPagesInBatch(batch, previous []int) []int {
	if len(previous) == 0 {
		return batch
	}
	covered := make(map[int]bool, len(previous))
	for _, p := range previous {
		covered[p] = true
	}
	var fresh []int
	for _, p := range batch {
		if !covered[p] {
			fresh = append(fresh, p)
		}
	}
	return fresh
}
