// Package video provides the Video domain entity.
package video

import "time"

// Video represents a single playable item in the feed.
// Contains only information retrieved from the content listing service.
type Video struct {
	ID           string        // Unique video ID
	SourceURL    string        // Playback source URL
	ThumbnailURL string        // Thumbnail URL (optional)
	Filename     string        // Original filename (optional)
	Duration     time.Duration // Duration (zero if unknown)
}

// DisplayName returns the name shown to the user, falling back to the ID
// when the listing did not carry a filename.
func (v *Video) DisplayName() string {
	if v.Filename != "" {
		return v.Filename
	}
	return v.ID
}

// Valid reports whether the entry carries the fields required for playback.
func (v *Video) Valid() bool {
	return v.ID != "" && v.SourceURL != ""
}

// Sanitize drops entries missing an ID or source URL, preserving order.
// The content listing service is not trusted to return complete entries.
func Sanitize(in []Video) []Video {
	out := make([]Video, 0, len(in))
	for _, v := range in {
		if v.Valid() {
			out = append(out, v)
		}
	}
	return out
}

// FilterByIDs returns the videos whose ID is in allowed, preserving the
// feed order. Used by restricted mode.
func FilterByIDs(videos []Video, allowed []string) []Video {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		if _, ok := set[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}
