package scoring

// DefaultChunkSize is the maximum chunk length in runes.
const DefaultChunkSize = 20000

// Chunk splits text into contiguous pieces of at most size runes.
// Joining the pieces reproduces text exactly; empty text yields no chunks.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	count, start := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}
