package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/parser"
	sniffertest "github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/testing"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

var (
	rsnPSK = ie.Element{ID: ie.TagRSN, Payload: []byte{
		0x01, 0x00,
		0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x02,
	}}
	rsnEnterprise = ie.Element{ID: ie.TagRSN, Payload: []byte{
		0x01, 0x00,
		0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x01,
	}}
	wpaPSK = ie.Element{ID: ie.TagVendorSpecific, Payload: []byte{
		0x00, 0x50, 0xf2, 0x01,
		0x01, 0x00,
		0x00, 0x50, 0xf2, 0x02,
		0x01, 0x00, 0x00, 0x50, 0xf2, 0x02,
		0x01, 0x00, 0x00, 0x50, 0xf2, 0x02,
	}}
	rsnGarbage = ie.Element{ID: ie.TagRSN, Payload: []byte{0x01}}
	wpsOnly    = ie.Element{ID: ie.TagVendorSpecific, Payload: []byte{0x00, 0x50, 0xf2, 0x04, 0x10, 0x4a, 0x00, 0x01, 0x10}}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		elements []ie.Element
		privacy  bool
		want     domain.SecurityLabel
	}{
		{"empty", nil, false, domain.SecurityOpen},
		{"wps only open", []ie.Element{wpsOnly}, false, domain.SecurityOpen},
		{"rsn ccmp psk", []ie.Element{rsnPSK}, true, domain.SecurityWPA2PSK},
		{"wpa psk", []ie.Element{wpaPSK}, true, domain.SecurityWPAPSK},
		{"mixed", []ie.Element{rsnPSK, wpaPSK}, true, domain.SecurityMixed},
		{"privacy only", []ie.Element{wpsOnly}, true, domain.SecurityWEP},
		{"enterprise", []ie.Element{rsnEnterprise}, true, domain.SecurityUnknown},
		{"unparseable rsn", []ie.Element{rsnGarbage}, true, domain.SecurityUnknown},
		{"enterprise rsn with wpa psk", []ie.Element{rsnEnterprise, wpaPSK}, true, domain.SecurityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.elements, tt.privacy))
		})
	}
}

func TestClassifyFrame(t *testing.T) {
	ap := domain.MustParseMAC("aa:bb:cc:dd:ee:ff")
	scanner := domain.MustParseMAC("00:de:ad:be:ef:00")

	raw := sniffertest.NewProbeResponse(ap, scanner).
		Capabilities(sniffertest.CapESS | sniffertest.CapPrivacy).
		SSID("wpa2").
		RSNPSK().
		Bytes()
	frame, err := parser.DecodeManagementFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SecurityWPA2PSK, ClassifyFrame(frame))

	raw = sniffertest.NewProbeResponse(ap, scanner).
		Capabilities(sniffertest.CapESS | sniffertest.CapPrivacy).
		SSID("wep").
		Bytes()
	frame, err = parser.DecodeManagementFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.SecurityWEP, ClassifyFrame(frame))

	assert.Equal(t, domain.SecurityUnknown, ClassifyFrame(nil))
}
