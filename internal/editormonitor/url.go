package editormonitor

import "regexp"

var resizedSuffix = regexp.MustCompile(`-\d+[xX]\d+\.`)

// CanonicalImageURL maps a resized thumbnail URL such as
// hero-300x200.jpg back to the full size hero.jpg
func CanonicalImageURL(src string) string {
	return resizedSuffix.ReplaceAllString(src, ".")
}
