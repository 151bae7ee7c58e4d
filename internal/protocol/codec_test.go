package protocol

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/dhrubo326/imds/internal/kverr"
)

func TestRequestRoundTrip(t *testing.T) {
	args := []string{"set", "foo", "bar"}
	frame := EncodeRequest(args)

	got, consumed, err := DecodeRequest(frame)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if consumed != len(frame) {
		t.Errorf("consumed %d bytes, want %d", consumed, len(frame))
	}
	if len(got) != 3 || got[0] != "set" || got[1] != "foo" || got[2] != "bar" {
		t.Errorf("decoded %v, want %v", got, args)
	}
}

func TestDecodeRequestIsResumable(t *testing.T) {
	frame := EncodeRequest([]string{"zadd", "zs", "1.5", "member"})

	// Every proper prefix must decode to "incomplete", not an error.
	for i := 0; i < len(frame); i++ {
		args, consumed, err := DecodeRequest(frame[:i])
		if err != nil {
			t.Fatalf("prefix of %d bytes: unexpected error %v", i, err)
		}
		if args != nil || consumed != 0 {
			t.Fatalf("prefix of %d bytes decoded early: %v (%d)", i, args, consumed)
		}
	}

	args, consumed, err := DecodeRequest(frame)
	if err != nil || consumed != len(frame) || len(args) != 4 {
		t.Fatalf("full frame: args=%v consumed=%d err=%v", args, consumed, err)
	}
}

func TestDecodePipelinedFrames(t *testing.T) {
	buf := append(EncodeRequest([]string{"set", "a", "1"}), EncodeRequest([]string{"get", "a"})...)
	buf = append(buf, EncodeRequest([]string{"del", "a"})[:5]...) // partial third frame

	var decoded [][]string
	for {
		args, consumed, err := DecodeRequest(buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if args == nil {
			break
		}
		decoded = append(decoded, args)
		buf = buf[consumed:]
	}

	if len(decoded) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(decoded))
	}
	if decoded[0][0] != "set" || decoded[1][0] != "get" {
		t.Errorf("frames out of order: %v", decoded)
	}
	if len(buf) != 5 {
		t.Errorf("remainder is %d bytes, want 5", len(buf))
	}
}

func TestDecodeRequestLimits(t *testing.T) {
	tooManyTokens := binary.BigEndian.AppendUint32(nil, MaxArgs+1)
	if _, _, err := DecodeRequest(tooManyTokens); !kverr.IsProtocol(err) {
		t.Errorf("oversized token count: got %v, want protocol error", err)
	}

	oversizedToken := binary.BigEndian.AppendUint32(nil, 1)
	oversizedToken = binary.BigEndian.AppendUint32(oversizedToken, MaxTokenLen+1)
	if _, _, err := DecodeRequest(oversizedToken); !kverr.IsProtocol(err) {
		t.Errorf("oversized token length: got %v, want protocol error", err)
	}

	invalidUTF8 := EncodeRequest([]string{"x"})
	invalidUTF8[len(invalidUTF8)-1] = 0xFF
	if _, _, err := DecodeRequest(invalidUTF8); !kverr.IsProtocol(err) {
		t.Errorf("invalid UTF-8 token: got %v, want protocol error", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	frame := EncodeResponse(StatusOK, []byte("bar"))

	status, payload, consumed, err := DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if status != StatusOK || string(payload) != "bar" || consumed != len(frame) {
		t.Errorf("got status=%d payload=%q consumed=%d", status, payload, consumed)
	}

	// Incomplete response stays pending.
	status, payload, consumed, err = DecodeResponse(frame[:6])
	if err != nil || consumed != 0 {
		t.Errorf("partial response: consumed=%d err=%v", consumed, err)
	}
	_ = status
	_ = payload
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want uint32
	}{
		{nil, StatusOK},
		{kverr.NotFound("key x"), StatusNotFound},
		{kverr.WrongType("GET on sorted-set value"), StatusWrongType},
		{kverr.BadArguments("nope"), StatusBadArguments},
		{kverr.Protocol("bad frame"), StatusProtocol},
		{kverr.Internal("disk", nil), StatusInternal},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Errorf("StatusOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestEncodeRequestLargeToken(t *testing.T) {
	value := strings.Repeat("v", MaxTokenLen)
	frame := EncodeRequest([]string{"set", "k", value})
	args, _, err := DecodeRequest(frame)
	if err != nil {
		t.Fatalf("max-size token rejected: %v", err)
	}
	if args[2] != value {
		t.Error("max-size token corrupted in round trip")
	}
}
