package catalog

import (
	"regexp"

	"cantina/internal/textutil"
)

// Google Drive share links come in several shapes; both carry the file ID.
var (
	reDriveFile = regexp.MustCompile(`/file/d/([\w-]+)`)
	reDriveID   = regexp.MustCompile(`[?&]id=([\w-]+)`)
)

// EnsureViewURL rewrites a Google Drive share link into the direct-view
// form usable in an image tag. Non-Drive URLs pass through unchanged; the
// rewrite is idempotent.
func EnsureViewURL(raw string) string {
	raw = textutil.CleanValue(raw)
	if raw == "" {
		return ""
	}
	if m := reDriveFile.FindStringSubmatch(raw); m != nil {
		return driveViewURL(m[1])
	}
	if m := reDriveID.FindStringSubmatch(raw); m != nil {
		return driveViewURL(m[1])
	}
	return raw
}

func driveViewURL(id string) string {
	return "https://drive.google.com/uc?export=view&id=" + id
}
