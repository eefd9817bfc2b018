package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rotisserie/eris"
)

const hashBytes = 16

type hashInput struct {
	Type    string  `json:"type"`
	Lang    *string `json:"lang"`
	Content any     `json:"content"`
	ID      uint    `json:"id"`
}

// contentHash digests the type name, language, resolved content and page id.
// encoding/json writes map keys in sorted order, so equal inputs always yield
// the same bytes. A nil lang hashes as JSON null.
func contentHash(typeName string, lang *string, resolved any, id uint) (string, error) {
	encoded, err := json.Marshal(hashInput{
		Type:    typeName,
		Lang:    lang,
		Content: resolved,
		ID:      id,
	})
	if err != nil {
		return "", eris.Wrapf(err, "encoding content of page %d for hashing", id)
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:hashBytes]), nil
}
