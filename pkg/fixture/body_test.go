package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name    string
		literal string
		kind    BodyKind
		want    []byte
	}{
		{name: "hex single byte", literal: "hex,ff;", kind: BodyHex, want: []byte{0xff}},
		{name: "hex upper case with spaces", literal: "hex, DE AD be ef ;", kind: BodyHex, want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "hex empty", literal: "hex,;", kind: BodyHex, want: []byte{}},
		{name: "base64", literal: "base64,/w==;", kind: BodyBase64, want: []byte{0xff}},
		{name: "plain text", literal: "Hello", kind: BodyText, want: []byte("Hello")},
		{name: "text with comma", literal: "a,b,c", kind: BodyText, want: []byte("a,b,c")},
		{name: "empty text", literal: "", kind: BodyText, want: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := ParseBody(tt.literal, "")
			require.NoError(t, err)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, len(tt.want), len(body.Data))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, body.Data)
			}
		})
	}
}

func TestParseBody_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ff.bin"), []byte{0xff}, 0o644))

	body, err := ParseBody("file,ff.bin;", dir)
	require.NoError(t, err)
	assert.Equal(t, BodyFile, body.Kind)
	assert.Equal(t, []byte{0xff}, body.Data)
	assert.Equal(t, ContentTypeOctetStream, body.DefaultContentType())
}

func TestParseBody_Errors(t *testing.T) {
	for _, literal := range []string{
		"hex,ff",
		"hex,zz;",
		"hex,f;",
		"base64,!!;",
		"file,;",
		"file,does-not-exist.bin;",
	} {
		t.Run(literal, func(t *testing.T) {
			_, err := ParseBody(literal, t.TempDir())
			assert.Error(t, err)
		})
	}

	_, err := ParseBody("base64,/w==", "")
	assert.ErrorIs(t, err, ErrUnterminatedLiteral)
}

func TestBody_DefaultContentType(t *testing.T) {
	assert.Equal(t, ContentTypeText, Body{Kind: BodyText}.DefaultContentType())
	assert.Equal(t, ContentTypeOctetStream, Body{Kind: BodyHex}.DefaultContentType())
	assert.Equal(t, ContentTypeOctetStream, Body{Kind: BodyBase64}.DefaultContentType())
}

func TestFormatHex(t *testing.T) {
	assert.Equal(t, "ff", FormatHex([]byte{0xff}))
	assert.Equal(t, "", FormatHex(nil))
}
