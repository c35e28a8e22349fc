package ntlmssp

import (
	"bytes"
	"encoding/hex"
	"regexp"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		ntLen int
		want  Kind
	}{
		{0, Malformed},
		{10, Malformed},
		{16, Malformed},
		{24, NTLMv1},
		{25, Malformed},
		{60, Malformed},
		{61, NTLMv2},
		{310, NTLMv2},
	}
	for _, tc := range testCases {
		if got := Classify(tc.ntLen); got != tc.want {
			t.Errorf("Classify(%d) = %v, want %v", tc.ntLen, got, tc.want)
		}
	}
}

var v1Line = regexp.MustCompile(`^[^:]*::[^:]*:[0-9a-f]{48}:[0-9a-f]{48}:[0-9a-f]{16}$`)

func TestFormatNTLMv1(t *testing.T) {
	for _, tc := range []struct{ user, domain string }{
		{"alice", "CORP"},
		{"", ""},
		{"svc_backup", "ad.example.com"},
	} {
		r := NewRecord(seq(0, 8), seq(0x40, 24), seq(0x80, 24), tc.domain, tc.user)
		line := r.String()
		if !v1Line.MatchString(line) {
			t.Errorf("String() = %q does not look like an NTLMv1 line", line)
		}
		if !strings.HasPrefix(line, tc.user+"::"+tc.domain+":") {
			t.Errorf("String() = %q, want prefix %q", line, tc.user+"::"+tc.domain+":")
		}
	}

	r := NewRecord(seq(0, 8), seq(0x40, 24), seq(0x80, 24), "CORP", "alice")
	want := "alice::CORP:" + hex.EncodeToString(seq(0x40, 24)) + ":" + hex.EncodeToString(seq(0x80, 24)) + ":0001020304050607"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFormatNTLMv2Split(t *testing.T) {
	for _, n := range []int{61, 64, 128, 300} {
		nt := seq(3, n)
		r := NewRecord(seq(0xf0, 8), seq(0, 24), nt, "CORP", "bob")
		if r.Kind != NTLMv2 {
			t.Fatalf("Kind = %v, want NTLMv2", r.Kind)
		}
		if r.LMResponse != nil {
			t.Errorf("LMResponse kept for NTLMv2: %x", r.LMResponse)
		}
		parts := strings.Split(r.String(), ":")
		if len(parts) != 6 {
			t.Fatalf("String() has %d fields, want 6: %q", len(parts), r.String())
		}
		if parts[3] != "f0f1f2f3f4f5f6f7" {
			t.Errorf("challenge field = %q", parts[3])
		}
		if len(parts[4]) != 32 {
			t.Errorf("NTProofStr field has %d hex chars, want 32", len(parts[4]))
		}
		joined, err := hex.DecodeString(parts[4] + parts[5])
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(joined, nt) {
			t.Errorf("NT response halves do not rebuild the response (n=%d)", n)
		}
	}
}

func TestFormatMalformed(t *testing.T) {
	r := NewRecord(seq(0, 8), nil, seq(0, 10), "CORP", "alice")
	if r.Kind != Malformed {
		t.Fatalf("Kind = %v, want Malformed", r.Kind)
	}
	if got := r.String(); got != MalformedMarker {
		t.Errorf("String() = %q, want %q", got, MalformedMarker)
	}
	if r.NTProofStr() != nil || r.Blob() != nil {
		t.Error("NTProofStr/Blob should be nil for malformed records")
	}
}

func TestRecordOwnsBytes(t *testing.T) {
	challenge := seq(0, 8)
	nt := seq(0, 24)
	r := NewRecord(challenge, seq(0, 24), nt, "", "")
	challenge[0] = 0xff
	nt[0] = 0xff
	if r.Challenge[0] != 0 || r.NTResponse[0] != 0 {
		t.Error("record aliases caller buffers")
	}
}

func TestNameDecoders(t *testing.T) {
	if got := StripNulls(utf16le("alice")); got != "alice" {
		t.Errorf("StripNulls() = %q", got)
	}
	if got := StripNulls([]byte("CORP")); got != "CORP" {
		t.Errorf("StripNulls() = %q", got)
	}
	if got := DecodeUTF16LE(utf16le("Jürgen")); got != "Jürgen" {
		t.Errorf("DecodeUTF16LE() = %q", got)
	}
	// Odd length is not UTF-16.
	if got := DecodeUTF16LE([]byte("abc")); got != "abc" {
		t.Errorf("DecodeUTF16LE() = %q", got)
	}
}

func TestNameDecodersEscapeControl(t *testing.T) {
	testCases := []struct {
		name string
		in   []byte
		dec  NameDecoder
		want string
	}{
		{"newline", []byte("x\nforged"), StripNulls, `x\x0aforged`},
		{"ansi", utf16le("\x1b[2Jy"), StripNulls, `\x1b[2Jy`},
		{"del", []byte("a\x7fb"), StripNulls, `a\x7fb`},
		{"stray c1", []byte("a\x9bb"), StripNulls, `a\x9bb`},
		{"utf16 newline", utf16le("bob\r\n"), DecodeUTF16LE, `bob\x0d\x0a`},
		{"utf16 c1", utf16le("a\u009b2J"), DecodeUTF16LE, `a\u009b2J`},
		{"utf16 printable", utf16le("Jürgen"), DecodeUTF16LE, "Jürgen"},
	}
	for _, tc := range testCases {
		if got := tc.dec(tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
