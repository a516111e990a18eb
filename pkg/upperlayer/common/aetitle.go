package common

import (
	"fmt"
	"strings"
)

// MaxAETitleLength is the fixed width an AE title occupies on the wire,
// space-padded.
const MaxAETitleLength = 16

// ValidateAETitle checks an AE title against PS3.8's 1..16 printable-ASCII,
// no-leading/trailing-space rule.
func ValidateAETitle(title string) error {
	if len(title) == 0 || len(title) > MaxAETitleLength {
		return fmt.Errorf("dicom: AE title %q: length must be 1..%d", title, MaxAETitleLength)
	}
	if title != strings.TrimSpace(title) {
		return fmt.Errorf("dicom: AE title %q: leading or trailing space not allowed", title)
	}
	for _, r := range title {
		if r < 0x20 || r > 0x7E {
			return fmt.Errorf("dicom: AE title %q: contains non-printable-ASCII byte %q", title, r)
		}
	}
	return nil
}

// PadAETitle returns title space-padded to the fixed 16-byte wire width.
// Longer titles are truncated; callers should validate first.
func PadAETitle(title string) string {
	if len(title) > MaxAETitleLength {
		title = title[:MaxAETitleLength]
	}
	return fmt.Sprintf("%-16s", title)
}

// TrimAETitle strips trailing NUL and space padding from a wire-format
// 16-byte AE title field.
func TrimAETitle(raw []byte) string {
	s := string(raw)
	if idx := strings.IndexByte(s, 0); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimRight(s, " ")
}
