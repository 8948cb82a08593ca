package base

import "encoding/base64"

// urlEncoding is URL-safe and unpadded, matching the wire format of the
// nested signed payloads exchanged with the license server.
var urlEncoding = base64.URLEncoding.WithPadding(base64.NoPadding)

// EncodeURL encodes bytes as URL-safe, unpadded base64.
func EncodeURL(b []byte) string {
	return urlEncoding.EncodeToString(b)
}

// DecodeURL decodes URL-safe, unpadded base64.
func DecodeURL(s string) ([]byte, error) {
	return urlEncoding.DecodeString(s)
}
