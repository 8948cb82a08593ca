package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleActivationBody() *FrlActivationRequestBody {
	return &FrlActivationRequestBody{
		AppDetails: FrlAppDetails{
			NglAppID:      "Photoshop1",
			NglAppVersion: "23.0.0",
			NglLibVersion: "1.30.0.1",
		},
		NpdID: "YzQ5MGUz",
		DeviceDetails: FrlDeviceDetails{
			DeviceID: "2c93c879c2fa",
			OsUserID: "b6deadbeef4d",
		},
	}
}

func TestDeactivationKeyUsesDeviceIDByDefault(t *testing.T) {
	b := sampleActivationBody()
	assert.Equal(t, "YzQ5MGUz|2c93c879c2fa", b.DeactivationKey())
}

func TestDeactivationKeyUsesOsUserIDUnderVDI(t *testing.T) {
	b := sampleActivationBody()
	b.DeviceDetails.EnableVdiMarkerExists = true
	b.DeviceDetails.IsVirtualEnvironment = true
	assert.Equal(t, "YzQ5MGUz|b6deadbeef4d", b.DeactivationKey())
}

func TestActivationKeyDependsOnlyOnNamedFields(t *testing.T) {
	b := sampleActivationBody()
	key1 := b.ActivationKey()

	// permuting an unrelated field must not change the key
	b.AsnpTemplateID = "something-else-entirely"
	key2 := b.ActivationKey()
	assert.Equal(t, key1, key2)

	b.AppDetails.NglLibVersion = "1.30.0.2"
	key3 := b.ActivationKey()
	assert.NotEqual(t, key1, key3)
}

func TestDeactivationQueryParamsKeyMatchesBodyKey(t *testing.T) {
	b := sampleActivationBody()
	params, err := ParseFrlDeactivationQueryParams(
		"npdId=YzQ5MGUz&deviceId=2c93c879c2fa&osUserId=b6deadbeef4d&enableVdiMarkerExists=0&isVirtualEnvironment=0&isOsUserAccountInDomain=0",
	)
	require.NoError(t, err)
	assert.Equal(t, b.DeactivationKey(), params.DeactivationKey())
}

func TestCustomerSignedValuesCodecRoundTrip(t *testing.T) {
	values := &FrlCustomerSignedValues{
		NpdID:             "YzQ5MGUz",
		AsnpID:            "asnp-1",
		CreationTimestamp: 1659806990834,
		CacheLifetime:     86400000,
		ResponseType:      "ACTIVATION",
		DeviceID:          "2c93c879c2fa",
		SessionID:         "session-1",
	}
	var envelope FrlCustomerCertSignedValues
	require.NoError(t, envelope.EncodeValues(values))

	decoded, err := envelope.DecodeValues()
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}
