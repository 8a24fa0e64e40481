package svn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		fallback string
		want     string
	}{
		{"empty", nil, "", ""},
		{"plain utf8", []byte("héllo"), "windows-1252", "héllo"},
		{"utf8 bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("abc")...), "", "abc"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "", "hi"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "", "hi"},
		{"latin1 fallback", []byte{'c', 'a', 'f', 0xE9}, "windows-1252", "café"},
		{"unknown label uses windows-1252", []byte{'c', 'a', 'f', 0xE9}, "no-such-charset", "café"},
		{"gbk fallback", []byte{0xC4, 0xE3, 0xBA, 0xC3}, "gbk", "你好"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeOutput(tt.raw, tt.fallback))
		})
	}
}
