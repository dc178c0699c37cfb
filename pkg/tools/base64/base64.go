package base64

import (
	"encoding/base64"
)

// Encode encodes raw archive bytes for embedding in a JSON request body.
func Encode(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// Decode reverses Encode.
func Decode(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
