package fixture

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hurlfix/pkg/utils/fs"
	"os"
	"strings"
	"unicode"
)

type BodyKind int

const (
	BodyText BodyKind = iota
	BodyHex
	BodyBase64
	BodyFile
)

func (k BodyKind) String() string {
	switch k {
	case BodyHex:
		return "hex"
	case BodyBase64:
		return "base64"
	case BodyFile:
		return "file"
	default:
		return "text"
	}
}

// Body is a decoded byte-array literal.
type Body struct {
	Kind BodyKind
	Data []byte
}

var ErrUnterminatedLiteral = errors.New("byte-array literal must end with ';'")

// ParseBody decodes a body literal. The forms are the assertion runner's
// byte-array syntax: "hex,ff;", "base64,/w==;" and "file,path;" (relative to
// baseDir). Anything without one of those prefixes is taken as text.
func ParseBody(literal, baseDir string) (Body, error) {
	prefix, rest, found := strings.Cut(literal, ",")
	if !found {
		return Body{Kind: BodyText, Data: []byte(literal)}, nil
	}

	switch prefix {
	case "hex":
		payload, err := terminated(rest)
		if err != nil {
			return Body{}, err
		}
		data, err := hex.DecodeString(stripSpace(payload))
		if err != nil {
			return Body{}, fmt.Errorf("invalid hex literal: %w", err)
		}
		return Body{Kind: BodyHex, Data: data}, nil

	case "base64":
		payload, err := terminated(rest)
		if err != nil {
			return Body{}, err
		}
		data, err := base64.StdEncoding.DecodeString(stripSpace(payload))
		if err != nil {
			return Body{}, fmt.Errorf("invalid base64 literal: %w", err)
		}
		return Body{Kind: BodyBase64, Data: data}, nil

	case "file":
		payload, err := terminated(rest)
		if err != nil {
			return Body{}, err
		}
		name := strings.TrimSpace(payload)
		if name == "" {
			return Body{}, errors.New("file literal has no path")
		}
		data, err := os.ReadFile(fs.ResolvePath(baseDir, name))
		if err != nil {
			return Body{}, fmt.Errorf("failed to read body file %s: %w", name, err)
		}
		return Body{Kind: BodyFile, Data: data}, nil
	}

	return Body{Kind: BodyText, Data: []byte(literal)}, nil
}

// DefaultContentType is the content type used when a fixture does not set one.
func (b Body) DefaultContentType() string {
	if b.Kind == BodyText {
		return ContentTypeText
	}
	return ContentTypeOctetStream
}

// FormatHex renders bytes the way they are shown in assertion reports.
func FormatHex(data []byte) string {
	return hex.EncodeToString(data)
}

func terminated(s string) (string, error) {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
	if !strings.HasSuffix(trimmed, ";") {
		return "", ErrUnterminatedLiteral
	}
	return strings.TrimSuffix(trimmed, ";"), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
