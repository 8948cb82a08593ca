package base

import "encoding/json"

// EncodeBase64JSON marshals v to JSON, then encodes the result as URL-safe
// unpadded base64. It is used for fields that carry a nested signed JSON
// document inside an outer JSON document — the license server embeds
// FrlCustomerSignedValues this way inside FrlCustomerCertSignedValues.
func EncodeBase64JSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return EncodeURL(raw), nil
}

// DecodeBase64JSON is the inverse of EncodeBase64JSON: base64-decode then
// JSON-unmarshal into v.
func DecodeBase64JSON(s string, v any) error {
	raw, err := DecodeURL(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
