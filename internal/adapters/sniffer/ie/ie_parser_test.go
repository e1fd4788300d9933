package ie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

func TestParse_WellFormed(t *testing.T) {
	body := []byte{
		0x00, 0x04, 'T', 'e', 's', 't', // SSID
		0x01, 0x02, 0x82, 0x84, // Rates
		0x03, 0x01, 0x06, // DS
		0xdd, 0x00, // empty vendor element
	}

	elements, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, elements, 4)

	assert.Equal(t, Element{ID: 0, Length: 4, Payload: []byte("Test")}, elements[0])
	assert.Equal(t, uint8(TagSupportedRates), elements[1].ID)
	assert.Equal(t, uint8(TagDSParameterSet), elements[2].ID)
	assert.Equal(t, uint8(TagVendorSpecific), elements[3].ID)
	assert.Empty(t, elements[3].Payload)

	for _, el := range elements {
		assert.Len(t, el.Payload, int(el.Length))
	}
}

func TestParse_Empty(t *testing.T) {
	elements, err := Parse(nil)
	assert.NoError(t, err)
	assert.Empty(t, elements)
}

func TestParse_Truncated(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		wantCount int
	}{
		{
			name:      "length past end",
			body:      []byte{0x00, 0x02, 'a', 'b', 0x03, 0x05, 0x01},
			wantCount: 1,
		},
		{
			name:      "dangling id byte",
			body:      []byte{0x03, 0x01, 0x06, 0xdd},
			wantCount: 1,
		},
		{
			name:      "first element truncated",
			body:      []byte{0x00, 0xff, 'x'},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements, err := Parse(tt.body)
			assert.ErrorIs(t, err, domain.ErrTruncatedElement)
			assert.Len(t, elements, tt.wantCount)

			var decErr *domain.DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.LessOrEqual(t, decErr.Offset, len(tt.body))
		})
	}
}

func TestParser_Lazy(t *testing.T) {
	body := []byte{0x00, 0x01, 'a', 0x01, 0x01, 0x82}
	p := NewParser(body)

	require.True(t, p.Next())
	assert.Equal(t, uint8(0), p.Element().ID)
	require.True(t, p.Next())
	assert.Equal(t, uint8(1), p.Element().ID)
	assert.False(t, p.Next())
	assert.False(t, p.Next())
	assert.NoError(t, p.Err())
}

func TestSSIDAndChannel(t *testing.T) {
	elements, err := Parse([]byte{0x00, 0x0a, 'D', 'I', 'R', 'E', 'C', 'T', '-', 'a', 'b', '1', 0x03, 0x01, 0x06})
	require.NoError(t, err)

	assert.Equal(t, "DIRECT-ab1", SSID(elements))
	ch, ok := Channel(elements)
	assert.True(t, ok)
	assert.Equal(t, uint8(6), ch)

	hidden, err := Parse([]byte{0x00, 0x03, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, "", SSID(hidden))
	_, ok = Channel(hidden)
	assert.False(t, ok)
}

func TestFindVendorSpecific(t *testing.T) {
	elements := []Element{
		{ID: TagVendorSpecific, Length: 6, Payload: []byte{0x00, 0x50, 0xf2, 0x01, 0x01, 0x00}}, // WPA
		{ID: TagVendorSpecific, Length: 5, Payload: []byte{0x00, 0x50, 0xf2, 0x04, 0xaa}},       // WPS
		{ID: TagVendorSpecific, Length: 4, Payload: []byte{0x50, 0x6f, 0x9a, 0x09}},             // P2P
		{ID: TagVendorSpecific, Length: 2, Payload: []byte{0x00, 0x50}},                         // too short
		{ID: TagSSID, Length: 4, Payload: []byte{0x00, 0x50, 0xf2, 0x04}},
	}

	wps := FindVendorSpecific(elements, WPSOUI, WPSOUIType)
	require.Len(t, wps, 1)
	assert.Equal(t, []byte{0x00, 0x50, 0xf2, 0x04, 0xaa}, wps[0])

	wpa := FindVendorSpecific(elements, MicrosoftOUI, WPAOUIType)
	assert.Len(t, wpa, 1)

	assert.Empty(t, FindVendorSpecific(elements, [3]byte{0x00, 0x0f, 0xac}, 0x04))
}
