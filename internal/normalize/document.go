package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// docPattern matches the first "number, separator, number" fragment of a
// document reference, regardless of surrounding text.
var docPattern = regexp.MustCompile(`\d+[/-]\d+`)

// parcelWidth is the fixed zero-padded width of the parcel component.
const parcelWidth = 3

// CanonicalDocument reduces a document reference to its canonical
// "principal/parcel" matching key so that different spellings of the same
// invoice compare equal: "58817/3", "58817-03" and "58817/03-DME" all
// canonicalize to "58817/003".
//
// When no numeric pattern is present the trimmed input becomes its own key,
// so such documents still participate in the join by literal text. The
// function is idempotent: applying it to its own output changes nothing.
func CanonicalDocument(document string) string {
	match := docPattern.FindString(document)
	if match == "" {
		return strings.TrimSpace(document)
	}

	parts := strings.Split(strings.ReplaceAll(match, "-", "/"), "/")
	if len(parts) != 2 {
		return strings.TrimSpace(document)
	}

	principal := strings.TrimSpace(parts[0])
	parcel := strings.TrimSpace(parts[1])
	if len(parcel) < parcelWidth {
		parcel = strings.Repeat("0", parcelWidth-len(parcel)) + parcel
	}

	return fmt.Sprintf("%s/%s", principal, parcel)
}
