package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/adlu-proxy/internal/base"
)

// FrlAppDetails mirrors the appDetails object of an FRL activation body.
type FrlAppDetails struct {
	CurrentAsnpID string `json:"currentAsnpId,omitempty"`
	NglAppID      string `json:"nglAppId"`
	NglAppVersion string `json:"nglAppVersion"`
	NglLibVersion string `json:"nglLibVersion"`
}

// FrlDeviceDetails mirrors the deviceDetails object of an FRL activation
// body.
type FrlDeviceDetails struct {
	CurrentDate               string `json:"currentDate"`
	DeviceID                  string `json:"deviceId"`
	EnableVdiMarkerExists     bool   `json:"enableVdiMarkerExists"`
	IsOsUserAccountInDomain   bool   `json:"isOsUserAccountInDomain"`
	IsVirtualEnvironment      bool   `json:"isVirtualEnvironment"`
	OsName                    string `json:"osName"`
	OsUserID                  string `json:"osUserId"`
	OsVersion                 string `json:"osVersion"`
}

// FrlActivationRequestBody is the JSON body of a POST
// /asnp/frl_connected/values/v2 request.
type FrlActivationRequestBody struct {
	AppDetails     FrlAppDetails    `json:"appDetails"`
	AsnpTemplateID string           `json:"asnpTemplateId"`
	DeviceDetails  FrlDeviceDetails `json:"deviceDetails"`
	NpdID          string           `json:"npdId"`
	NpdPrecedence  *int             `json:"npdPrecedence,omitempty"`
}

// DeactivationKey computes the identity under which a matching activation
// can be retired: npdId joined with osUserId (when the device is a VDI
// client in a virtual environment) or deviceId otherwise. This is the unit
// of invalidation.
func (b *FrlActivationRequestBody) DeactivationKey() string {
	id := b.DeviceDetails.DeviceID
	if b.DeviceDetails.EnableVdiMarkerExists && b.DeviceDetails.IsVirtualEnvironment {
		id = b.DeviceDetails.OsUserID
	}
	return join(b.NpdID, id)
}

// ActivationKey computes the identity of the cached activation: the
// DeactivationKey augmented by app identity and library version.
func (b *FrlActivationRequestBody) ActivationKey() string {
	return join(b.AppDetails.NglAppID, b.AppDetails.NglLibVersion, b.DeactivationKey())
}

func join(parts ...string) string {
	return strings.Join(parts, "|")
}

// FrlDeactivationQueryParams is the query-string form of a DELETE
// /asnp/frl_connected/v1 request.
type FrlDeactivationQueryParams struct {
	NpdID                   string
	DeviceID                string
	OsUserID                string
	EnableVdiMarkerExists   bool
	IsVirtualEnvironment    bool
	IsOsUserAccountInDomain bool
}

// ParseFrlDeactivationQueryParams decodes a deactivation request's raw query
// string.
func ParseFrlDeactivationQueryParams(rawQuery string) (*FrlDeactivationQueryParams, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parse deactivation query: %w", err)
	}
	return &FrlDeactivationQueryParams{
		NpdID:                   values.Get("npdId"),
		DeviceID:                values.Get("deviceId"),
		OsUserID:                values.Get("osUserId"),
		EnableVdiMarkerExists:   ParseBoolFlag(values.Get("enableVdiMarkerExists")),
		IsVirtualEnvironment:    ParseBoolFlag(values.Get("isVirtualEnvironment")),
		IsOsUserAccountInDomain: ParseBoolFlag(values.Get("isOsUserAccountInDomain")),
	}, nil
}

// DeactivationKey computes the same identity as
// FrlActivationRequestBody.DeactivationKey, derived from query parameters
// instead of a JSON body.
func (p *FrlDeactivationQueryParams) DeactivationKey() string {
	id := p.DeviceID
	if p.EnableVdiMarkerExists && p.IsVirtualEnvironment {
		id = p.OsUserID
	}
	return join(p.NpdID, id)
}

// Encode renders the params back into a raw query string, used when
// forwarding a deactivation request upstream.
func (p *FrlDeactivationQueryParams) Encode() string {
	v := url.Values{}
	v.Set("npdId", p.NpdID)
	v.Set("deviceId", p.DeviceID)
	v.Set("osUserId", p.OsUserID)
	v.Set("enableVdiMarkerExists", boolFlag(p.EnableVdiMarkerExists))
	v.Set("isVirtualEnvironment", boolFlag(p.IsVirtualEnvironment))
	v.Set("isOsUserAccountInDomain", boolFlag(p.IsOsUserAccountInDomain))
	return v.Encode()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FrlDeactivationResponseBody is the JSON body of a successful
// deactivation response.
type FrlDeactivationResponseBody struct {
	InvalidationSuccessful bool `json:"invalidationSuccessful"`
}

// FrlCustomerSignedValues is the nested JSON document carried, base64
// encoded, inside FrlCustomerCertSignedValues.Values: a two-layer codec
// (string⇄bytes⇄JSON) rather than a single flattened schema.
type FrlCustomerSignedValues struct {
	NpdID                  string `json:"npdId"`
	AsnpID                 string `json:"asnpId"`
	CreationTimestamp      int64  `json:"creationTimestamp"`
	CacheLifetime          int64  `json:"cacheLifetime"`
	ResponseType           string `json:"responseType"`
	CacheExpiryWarningCtrl string `json:"cacheExpiryWarningControl"`
	PreviousAsnpID         string `json:"previousAsnpId,omitempty"`
	DeviceID               string `json:"deviceId"`
	OsUserID               string `json:"osUserId"`
	DeviceDate             string `json:"deviceDate"`
	SessionID              string `json:"sessionId"`
}

// CustomerSignatures carries the detached signature bytes accompanying
// FrlCustomerSignedValues; its contents are opaque to the proxy.
type CustomerSignatures struct {
	Signature  string `json:"signature"`
	SignedHash string `json:"signedHash,omitempty"`
}

// FrlCustomerCertSignedValues is the outer envelope whose Values field is a
// base64-encoded-JSON string rather than a nested JSON object.
type FrlCustomerCertSignedValues struct {
	Signatures CustomerSignatures `json:"signatures"`
	Values     string             `json:"values"`
}

// DecodeValues base64-decodes and JSON-unmarshals the nested Values field.
func (c *FrlCustomerCertSignedValues) DecodeValues() (*FrlCustomerSignedValues, error) {
	var v FrlCustomerSignedValues
	if err := base.DecodeBase64JSON(c.Values, &v); err != nil {
		return nil, fmt.Errorf("decode customer signed values: %w", err)
	}
	return &v, nil
}

// EncodeValues is the inverse of DecodeValues, used when the proxy itself
// constructs a response (e.g. for tests and mocks).
func (c *FrlCustomerCertSignedValues) EncodeValues(v *FrlCustomerSignedValues) error {
	enc, err := base.EncodeBase64JSON(v)
	if err != nil {
		return fmt.Errorf("encode customer signed values: %w", err)
	}
	c.Values = enc
	return nil
}

// FrlActivationResponseBody is the JSON body of a successful activation
// response. Its contents beyond the envelope are opaque to the proxy,
// except where the cache needs to round-trip them.
type FrlActivationResponseBody struct {
	AdobeCertSignedValues    json.RawMessage             `json:"adobeCertSignedValues"`
	CustomerCertSignedValues FrlCustomerCertSignedValues `json:"customerCertSignedValues"`
}
