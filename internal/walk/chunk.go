package walk

// Chunk returns the batch size used to split n entries across parallelism p.
// A p below one is treated as one, so the whole list forms a single batch.
func Chunk(n, p int) int {
	if n <= 0 {
		return 0
	}
	if p < 1 {
		p = 1
	}
	return (n + p - 1) / p
}

// Chunks partitions entries into consecutive batches of Chunk(len(entries), p)
// elements. The last batch may be shorter. No batches are returned for an
// empty list.
func Chunks[T any](entries []T, p int) [][]T {
	size := Chunk(len(entries), p)
	if size == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batches = append(batches, entries[start:end:end])
	}
	return batches
}
