package server

import "fmt"

// ProtocolError is bot traffic the gateway cannot accept: an unknown
// envelope type, an undecodable payload, or a message outside the
// session's contract. Each one is answered on the wire and counted
// toward the session's strike limit; rule rejections are not protocol
// errors.
type ProtocolError struct {
	Code   string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %s: %s", e.Code, e.Detail)
}

func protoErr(code, format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: code, Detail: fmt.Sprintf(format, args...)}
}
