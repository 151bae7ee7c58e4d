// Package protocol implements the length-prefixed binary framing spoken
// between clients and the server, and reused verbatim for AOF records.
//
// Request frame:  [u32 token_count] then token_count times [u32 len][len bytes].
// Response frame: [u32 inner_len][u32 status][payload bytes].
// All integers are big-endian; token and payload bytes are UTF-8.
package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/dhrubo326/imds/internal/kverr"
)

const (
	// MaxArgs is the maximum number of tokens in one request frame.
	MaxArgs = 1024
	// MaxTokenLen is the maximum byte length of a single token or
	// response payload.
	MaxTokenLen = 4096
)

// Response status codes.
const (
	StatusOK           uint32 = 0
	StatusNotFound     uint32 = 1
	StatusWrongType    uint32 = 2
	StatusBadArguments uint32 = 3
	StatusInternal     uint32 = 4
	StatusProtocol     uint32 = 5
)

// StatusOf maps an engine error to its wire status code.
func StatusOf(err error) uint32 {
	if err == nil {
		return StatusOK
	}
	switch kverr.TypeOf(err) {
	case kverr.ErrorTypeNotFound:
		return StatusNotFound
	case kverr.ErrorTypeWrongType:
		return StatusWrongType
	case kverr.ErrorTypeBadArguments:
		return StatusBadArguments
	case kverr.ErrorTypeProtocol:
		return StatusProtocol
	default:
		return StatusInternal
	}
}

// EncodeRequest builds a request frame from command tokens.
func EncodeRequest(args []string) []byte {
	size := 4
	for _, a := range args {
		size += 4 + len(a)
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(args)))
	for _, a := range args {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(a)))
		buf = append(buf, a...)
	}
	return buf
}

// DecodeRequest parses one request frame from the front of buf.
//
// It is resumable: when buf holds only a prefix of a frame it returns
// (nil, 0, nil) and the caller retries after more bytes arrive. On success
// it returns the decoded tokens and the number of bytes consumed, leaving
// any following frames untouched. A frame that can never become valid
// (token count or length over the limit, non-UTF-8 token) yields a
// protocol error; the caller cannot resynchronize and should drop the
// connection.
func DecodeRequest(buf []byte) ([]string, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}
	nstr := binary.BigEndian.Uint32(buf[:4])
	if nstr > MaxArgs {
		return nil, 0, kverr.Protocol(fmt.Sprintf("token count %d exceeds limit %d", nstr, MaxArgs))
	}
	pos := 4
	args := make([]string, 0, nstr)
	for i := uint32(0); i < nstr; i++ {
		if len(buf) < pos+4 {
			return nil, 0, nil
		}
		tokenLen := binary.BigEndian.Uint32(buf[pos : pos+4])
		if tokenLen > MaxTokenLen {
			return nil, 0, kverr.Protocol(fmt.Sprintf("token length %d exceeds limit %d", tokenLen, MaxTokenLen))
		}
		pos += 4
		if len(buf) < pos+int(tokenLen) {
			return nil, 0, nil
		}
		token := buf[pos : pos+int(tokenLen)]
		if !utf8.Valid(token) {
			return nil, 0, kverr.Protocol("token is not valid UTF-8")
		}
		args = append(args, string(token))
		pos += int(tokenLen)
	}
	return args, pos, nil
}

// EncodeResponse builds a response frame: outer length, status, payload.
func EncodeResponse(status uint32, payload []byte) []byte {
	buf := make([]byte, 0, 8+len(payload))
	buf = binary.BigEndian.AppendUint32(buf, uint32(4+len(payload)))
	buf = binary.BigEndian.AppendUint32(buf, status)
	buf = append(buf, payload...)
	return buf
}

// DecodeResponse parses one response frame from the front of buf, with the
// same resumable contract as DecodeRequest. Used by the interactive client
// and by tests.
func DecodeResponse(buf []byte) (status uint32, payload []byte, consumed int, err error) {
	if len(buf) < 4 {
		return 0, nil, 0, nil
	}
	innerLen := binary.BigEndian.Uint32(buf[:4])
	if innerLen < 4 {
		return 0, nil, 0, kverr.Protocol("response inner length below status size")
	}
	if innerLen > 4+MaxTokenLen*MaxArgs {
		return 0, nil, 0, kverr.Protocol("response inner length exceeds limit")
	}
	if len(buf) < 4+int(innerLen) {
		return 0, nil, 0, nil
	}
	status = binary.BigEndian.Uint32(buf[4:8])
	payload = append([]byte(nil), buf[8:4+innerLen]...)
	return status, payload, 4 + int(innerLen), nil
}
