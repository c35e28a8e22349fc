package ntlmssp

import (
	"bytes"
	"encoding/base64"
)

var authHeaders = [][]byte{
	[]byte("www-authenticate:"),
	[]byte("authorization:"),
	[]byte("proxy-authenticate:"),
	[]byte("proxy-authorization:"),
}

var authSchemes = [][]byte{
	[]byte("NTLM "),
	[]byte("Negotiate "),
}

// HTTPToken returns the first base64 NTLMSSP token carried in an HTTP
// authentication header of payload, or nil. Negotiate tokens that wrap
// NTLMSSP in SPNEGO are returned as well; Match finds the message inside.
func HTTPToken(payload []byte) []byte {
	for _, line := range bytes.Split(payload, []byte("\r\n")) {
		if !isAuthHeader(line) {
			continue
		}
		value := bytes.TrimSpace(line[bytes.IndexByte(line, ':')+1:])
		for _, scheme := range authSchemes {
			if !hasPrefixFold(value, scheme) {
				continue
			}
			encoded := bytes.TrimSpace(value[len(scheme):])
			token := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
			n, err := base64.StdEncoding.Decode(token, encoded)
			if err != nil {
				break
			}
			if bytes.Contains(token[:n], Signature) {
				return token[:n]
			}
		}
	}
	return nil
}

// Header names and auth schemes are case-insensitive.
func isAuthHeader(line []byte) bool {
	for _, h := range authHeaders {
		if hasPrefixFold(line, h) {
			return true
		}
	}
	return false
}

func hasPrefixFold(b, prefix []byte) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], prefix)
}
