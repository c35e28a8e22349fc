package capture

import "bytes"

var (
	smb1ProtocolID = []byte{0xff, 'S', 'M', 'B'}
	smb2ProtocolID = []byte{0xfe, 'S', 'M', 'B'}
)

// IsSMB reports whether payload is an SMB message: a 4-byte NetBIOS session
// header followed by the SMB1 or SMB2/3 protocol id.
func IsSMB(payload []byte) bool {
	if len(payload) < 8 {
		return false
	}
	id := payload[4:8]
	return bytes.Equal(id, smb1ProtocolID) || bytes.Equal(id, smb2ProtocolID)
}
