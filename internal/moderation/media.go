package moderation

import (
	"path/filepath"
	"strings"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
)

var (
	imageExtensions = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}}
	videoExtensions = map[string]struct{}{"mp4": {}, "webm": {}, "mov": {}}
)

// Ext returns the lower-cased extension of filename without the dot.
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsAllowedMedia reports whether filename has an allowed image or video
// extension.
func IsAllowedMedia(filename string) bool {
	_, ok := MediaTypeFor(filename)
	return ok
}

// MediaTypeFor classifies filename by extension.
func MediaTypeFor(filename string) (domain.MediaType, bool) {
	ext := Ext(filename)
	if _, ok := videoExtensions[ext]; ok {
		return domain.MediaTypeVideo, true
	}
	if _, ok := imageExtensions[ext]; ok {
		return domain.MediaTypeImage, true
	}
	return "", false
}
