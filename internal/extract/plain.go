package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/lu4p/cat"
)

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return strings.ReplaceAll(string(content), "\r\n", "\n"), nil
}

// extractCat converts OpenDocument text and RTF manuscripts with lu4p/cat.
func extractCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", err
	}
	return extractPlain([]byte(text))
}
