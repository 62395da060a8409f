package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameSequence(t *testing.T) {
	tests := []struct {
		name     string
		a        []Track
		b        []Track
		expected bool
	}{
		{
			name:     "both empty",
			a:        []Track{},
			b:        nil,
			expected: true,
		},
		{
			name:     "same ids with different metadata",
			a:        []Track{{ID: "a", PlayCount: 1}, {ID: "b"}},
			b:        []Track{{ID: "a", PlayCount: 99}, {ID: "b", Title: "renamed"}},
			expected: true,
		},
		{
			name:     "different order",
			a:        []Track{{ID: "a"}, {ID: "b"}},
			b:        []Track{{ID: "b"}, {ID: "a"}},
			expected: false,
		},
		{
			name:     "different length",
			a:        []Track{{ID: "a"}},
			b:        []Track{{ID: "a"}, {ID: "b"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SameSequence(tt.a, tt.b))
		})
	}
}

func TestIndexOf(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, 0, IndexOf(tracks, "a"))
	assert.Equal(t, 2, IndexOf(tracks, "c"))
	assert.Equal(t, -1, IndexOf(tracks, "missing"))
	assert.Equal(t, -1, IndexOf(nil, "a"))
}

func TestClone(t *testing.T) {
	src := []Track{{ID: "a"}, {ID: "b"}}
	dst := Clone(src)
	dst[0].ID = "changed"

	assert.Equal(t, "a", src[0].ID)
	assert.Nil(t, Clone(nil))
	assert.Equal(t, []string{"a", "b"}, IDs(src))
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{name: "zero", input: 0, expected: "0:00"},
		{name: "single digit seconds", input: 65 * time.Second, expected: "1:05"},
		{name: "two digit seconds", input: 3*time.Minute + 27*time.Second, expected: "3:27"},
		{name: "rounds up to next minute", input: 59600 * time.Millisecond, expected: "1:00"},
		{name: "negative is clamped", input: -time.Second, expected: "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTime(tt.input))
		})
	}
}

func TestTrack_HasAudio(t *testing.T) {
	assert.True(t, (&Track{ID: "a", AudioURL: "https://example.com/a.mp3"}).HasAudio())
	assert.False(t, (&Track{ID: "a"}).HasAudio())
}
