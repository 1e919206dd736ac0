package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// tokenSpace namespaces the name-based UUIDs used as document keys.
var tokenSpace = uuid.MustParse("6f1c0e5a-7d2b-4f43-9a51-2e8c3b7d90a4")

// token returns a stable 16-hex-digit key for the given content. Equal
// content yields equal tokens, so re-encoding an unchanged catalog produces
// an identical document.
func token(parts ...any) string {
	b, err := json.Marshal(parts)
	if err != nil {
		// Non-string mapping keys; fmt prints maps in key order.
		b = []byte(fmt.Sprint(parts...))
	}
	id := uuid.NewSHA1(tokenSpace, b)
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}
