package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVideo_DisplayName(t *testing.T) {
	v := Video{ID: "vid-1", SourceURL: "https://cdn.example.com/1.mp4", Filename: "bunny.mp4"}
	assert.Equal(t, "bunny.mp4", v.DisplayName())

	v.Filename = ""
	assert.Equal(t, "vid-1", v.DisplayName())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      []Video
		wantIDs []string
	}{
		{
			name: "all valid",
			in: []Video{
				{ID: "a", SourceURL: "https://cdn.example.com/a.mp4"},
				{ID: "b", SourceURL: "https://cdn.example.com/b.mp4"},
			},
			wantIDs: []string{"a", "b"},
		},
		{
			name: "missing id dropped",
			in: []Video{
				{ID: "", SourceURL: "https://cdn.example.com/x.mp4"},
				{ID: "b", SourceURL: "https://cdn.example.com/b.mp4"},
			},
			wantIDs: []string{"b"},
		},
		{
			name: "missing url dropped",
			in: []Video{
				{ID: "a", SourceURL: ""},
				{ID: "b", SourceURL: "https://cdn.example.com/b.mp4"},
				{ID: "c", SourceURL: ""},
			},
			wantIDs: []string{"b"},
		},
		{
			name:    "empty input",
			in:      nil,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			ids := make([]string, 0, len(got))
			for _, v := range got {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterByIDs(t *testing.T) {
	videos := []Video{
		{ID: "a", SourceURL: "u", Duration: time.Minute},
		{ID: "b", SourceURL: "u"},
		{ID: "c", SourceURL: "u"},
	}

	got := FilterByIDs(videos, []string{"c", "a"})
	// Feed order wins over selection order.
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	assert.Empty(t, FilterByIDs(videos, nil))
}
