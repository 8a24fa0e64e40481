package svn

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeOutput converts raw process output to a UTF-8 string.
// A byte order mark decides first; valid UTF-8 is taken as is; anything
// else is decoded with the fallback charset (a WHATWG label such as
// "windows-1252" or "gbk"). Unknown labels fall back to windows-1252.
func decodeOutput(raw []byte, fallback string) string {
	if len(raw) == 0 {
		return ""
	}

	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):])
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw)
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw)
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	return decodeWith(fallbackEncoding(fallback), raw)
}

func fallbackEncoding(label string) encoding.Encoding {
	if label != "" {
		if enc, err := htmlindex.Get(label); err == nil {
			return enc
		}
	}
	enc, _ := htmlindex.Get("windows-1252")
	return enc
}

func decodeWith(enc encoding.Encoding, raw []byte) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
