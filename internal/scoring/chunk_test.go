package scoring

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChunkCoverage(t *testing.T) {
	inputs := []string{
		"",
		"a",
		strings.Repeat("abc", 10),
		strings.Repeat("Бат-Эрдэнэ React ", 40),
		strings.Repeat("x", 100),
	}
	for _, text := range inputs {
		for _, size := range []int{1, 7, 10, 100, 1000} {
			chunks := Chunk(text, size)
			assert.Equal(t, text, strings.Join(chunks, ""), "size=%d", size)

			n := utf8.RuneCountInString(text)
			want := (n + size - 1) / size
			assert.Len(t, chunks, want, "size=%d len=%d", size, n)
			for _, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
				assert.True(t, utf8.ValidString(c))
			}
		}
	}
}

func TestChunkEmptyAndDefault(t *testing.T) {
	assert.Empty(t, Chunk("", 10))
	assert.Len(t, Chunk(strings.Repeat("a", DefaultChunkSize+1), 0), 2)
}
