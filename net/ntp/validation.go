package ntp

import (
	"errors"
)

var (
	errUnexpectedRequest  = errors.New("unexpected request structure")
	errUnexpectedResponse = errors.New("unexpected response structure")
)

func ValidateResponseMetadata(resp *Packet) error {
	// Based on Ntimed by Poul-Henning Kamp, https://github.com/bsdphk/Ntimed

	if resp.LeapIndicator() == LeapIndicatorUnknown {
		return errUnexpectedResponse
	}
	if resp.Version() != 3 && resp.Version() != 4 {
		return errUnexpectedResponse
	}
	if resp.Mode() != ModeServer {
		return errUnexpectedResponse
	}
	if resp.Stratum == 0 || resp.Stratum > 15 {
		return errUnexpectedResponse
	}
	// server clock must not tick backwards between receive and transmit
	if resp.TransmitTime.Before(resp.ReceiveTime) {
		return errUnexpectedResponse
	}
	return nil
}

// ValidateRequest accepts client mode requests of any supported version,
// including the legacy 0xDB request byte with leap indicator 3.
func ValidateRequest(req *Packet) error {
	vn := req.Version()
	if vn < VersionMin || VersionMax < vn {
		return errUnexpectedRequest
	}
	mode := req.Mode()
	if vn == 1 && mode != ModeReserved0 || vn != 1 && mode != ModeClient {
		return errUnexpectedRequest
	}
	return nil
}
