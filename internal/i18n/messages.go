package i18n

import (
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/models"
)

// Message keys
const (
	KeyDenyNoImage    = "guard.deny.no_image"
	KeyDenyMinSize    = "guard.deny.min_size"
	KeyNoticeNoImage  = "editor.notice.no_image"
	KeyNoticeTooSmall = "editor.notice.too_small"
)

// DenyMessage is the hard-stop text shown when a publish is blocked. It only
// depends on the configured minimum: with no size enforced the generic text
// is used, otherwise the minimums are interpolated.
func DenyMessage(tag language.Tag, size models.MinimumSize) string {
	p := Printer(tag)
	if size.IsZero() {
		return p.Sprintf(KeyDenyNoImage)
	}
	return p.Sprintf(KeyDenyMinSize, size.Width, size.Height)
}

// EditorNoImageNotice is the inline editor notice for a missing image
func EditorNoImageNotice(tag language.Tag) string {
	return Printer(tag).Sprintf(KeyNoticeNoImage)
}

// EditorTooSmallNotice is the inline editor notice for an undersized image
func EditorTooSmallNotice(tag language.Tag, size models.MinimumSize) string {
	return Printer(tag).Sprintf(KeyNoticeTooSmall, size.Width, size.Height)
}
