package process

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used for stderr and whenever the requested encoding is unknown.
const DefaultEncoding = "utf-8"

// lookupEncoding resolves a WHATWG encoding label, falling back to utf-8.
func lookupEncoding(name string) encoding.Encoding {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return unicode.UTF8
	}
	return enc
}

// EncodingExists reports whether name is a known encoding label.
func EncodingExists(name string) bool {
	_, err := htmlindex.Get(strings.TrimSpace(name))
	return err == nil
}

func decode(raw []byte, enc encoding.Encoding) string {
	if enc == unicode.UTF8 {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
