package extract

import (
	"fmt"
	"unicode/utf8"
)

// PlainExtractor passes UTF-8 text through unchanged (.txt, .md).
type PlainExtractor struct{}

func (PlainExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid utf-8 text")
	}
	return string(data), nil
}
