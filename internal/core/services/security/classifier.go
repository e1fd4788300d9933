package security

import (
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Classify derives the security label of a responder from its information
// elements and the privacy bit of its capability field.
//
// RSN and WPA both offering PSK yields WPA/WPA2-Mixed. An RSN or WPA element
// that does not advertise PSK (or cannot be parsed) yields Unknown. Without
// either element the privacy bit decides between WEP and Open.
func Classify(elements []ie.Element, privacy bool) domain.SecurityLabel {
	var rsn, wpa *ie.RSNInfo
	rsnPresent, wpaPresent := false, false

	if el, ok := ie.Find(elements, ie.TagRSN); ok {
		rsnPresent = true
		rsn, _ = ie.ParseRSN(el.Payload)
	}
	if payloads := ie.FindVendorSpecific(elements, ie.MicrosoftOUI, ie.WPAOUIType); len(payloads) > 0 {
		wpaPresent = true
		wpa, _ = ie.ParseWPA(payloads[0])
	}

	rsnPSK := rsn != nil && rsn.HasPSK()
	wpaPSK := wpa != nil && wpa.HasPSK()

	switch {
	case rsnPSK && wpaPSK:
		return domain.SecurityMixed
	case rsnPSK:
		return domain.SecurityWPA2PSK
	case wpaPSK && !rsnPresent:
		return domain.SecurityWPAPSK
	case rsnPresent || wpaPresent:
		return domain.SecurityUnknown
	case privacy:
		return domain.SecurityWEP
	default:
		return domain.SecurityOpen
	}
}

// ClassifyFrame classifies a decoded probe response.
func ClassifyFrame(frame *parser.ManagementFrame) domain.SecurityLabel {
	if frame == nil {
		return domain.SecurityUnknown
	}
	return Classify(frame.Elements, frame.Privacy())
}
