package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// ContentKey identifies a source version by syntax profile and text.
func ContentKey(src extraction.Source) string {
	h := sha256.New()
	h.Write([]byte(src.Syntax))
	h.Write([]byte{0})
	h.Write([]byte(src.Text))
	return hex.EncodeToString(h.Sum(nil))
}
