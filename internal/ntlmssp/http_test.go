package ntlmssp

import (
	"bytes"
	"encoding/base64"
	"testing"
)

// Type 2 message from a Responder capture.
const responderChallenge = "TlRMTVNTUAACAAAABgAGADgAAAAFAomih5Y9EpIdLmMAAAAAAAAAAIAAgAA+AAAABQLODgAAAA9TAE0AQgACAAYAUwBNAEIAAQAWAFMATQBCAC0AVABPAE8ATABLAEkAVAAEABIAcwBtAGIALgBsAG8AYwBhAGwAAwAoAHMAZQByAHYAZQByADIAMAAwADMALgBzAG0AYgAuAGwAbwBjAGEAbAAFABIAcwBtAGIALgBsAG8AYwBhAGwAAAAAAA=="

func TestHTTPToken(t *testing.T) {
	resp := []byte("HTTP/1.1 401 Unauthorized\r\n" +
		"Content-Length: 0\r\n" +
		"WWW-Authenticate: NTLM " + responderChallenge + "\r\n" +
		"\r\n")
	token := HTTPToken(resp)
	if token == nil {
		t.Fatal("HTTPToken() = nil")
	}
	if Match(token, ChallengeMessage) != 0 {
		t.Fatalf("token is not a CHALLENGE message: %x", token[:12])
	}

	c := NewCorrelator(nil)
	c.Scan(token)
	if got := c.Pending(); !bytes.Equal(got, []byte{0x87, 0x96, 0x3d, 0x12, 0x92, 0x1d, 0x2e, 0x63}) {
		t.Errorf("Pending() = %x", got)
	}
}

func TestHTTPTokenAuthorization(t *testing.T) {
	msg := authenticate{lm: seq(0, 24), nt: seq(0, 24), user: []byte("alice")}.bytes()
	req := []byte("GET / HTTP/1.1\r\n" +
		"Host: intranet\r\n" +
		"authorization: Negotiate " + base64.StdEncoding.EncodeToString(msg) + "\r\n\r\n")
	if got := HTTPToken(req); !bytes.Equal(got, msg) {
		t.Errorf("HTTPToken() = %x, want %x", got, msg)
	}
}

func TestHTTPTokenSchemeCase(t *testing.T) {
	msg := authenticate{lm: seq(0, 24), nt: seq(0, 24), user: []byte("alice")}.bytes()
	encoded := base64.StdEncoding.EncodeToString(msg)
	for _, scheme := range []string{"ntlm", "Ntlm", "NEGOTIATE", "negotiate"} {
		req := []byte("GET / HTTP/1.1\r\nAuthorization: " + scheme + " " + encoded + "\r\n\r\n")
		if got := HTTPToken(req); !bytes.Equal(got, msg) {
			t.Errorf("scheme %q: HTTPToken() = %x, want %x", scheme, got, msg)
		}
	}
}

func TestHTTPTokenIgnored(t *testing.T) {
	for _, payload := range []string{
		"",
		"GET / HTTP/1.1\r\nHost: x\r\n\r\n",
		"HTTP/1.1 401 Unauthorized\r\nWWW-Authenticate: NTLM\r\n\r\n",
		"HTTP/1.1 401 Unauthorized\r\nWWW-Authenticate: NTLM !!!notbase64\r\n\r\n",
		"HTTP/1.1 401 Unauthorized\r\nWWW-Authenticate: Basic realm=\"x\"\r\n\r\n",
		"GET / HTTP/1.1\r\nAuthorization: NTLM " + base64.StdEncoding.EncodeToString([]byte("not ntlm")) + "\r\n\r\n",
	} {
		if got := HTTPToken([]byte(payload)); got != nil {
			t.Errorf("HTTPToken(%q) = %x, want nil", payload, got)
		}
	}
}
