// Package client is a small synchronous client for the binary protocol,
// used by the interactive subcommand and by end-to-end tests.
package client

import (
	"net"

	"github.com/dhrubo326/imds/internal/protocol"
)

// Client holds one connection and the read buffer responses are decoded
// from. It sends one request at a time and waits for its response.
type Client struct {
	conn net.Conn
	buf  []byte
}

// Dial connects to a server.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one command and returns the response status and payload.
func (c *Client) Do(args ...string) (uint32, string, error) {
	if _, err := c.conn.Write(protocol.EncodeRequest(args)); err != nil {
		return 0, "", err
	}
	return c.ReadResponse()
}

// Send writes a request without waiting for a response, for pipelining.
func (c *Client) Send(args ...string) error {
	_, err := c.conn.Write(protocol.EncodeRequest(args))
	return err
}

// ReadResponse reads exactly one response frame, buffering partial reads.
func (c *Client) ReadResponse() (uint32, string, error) {
	scratch := make([]byte, 4096)
	for {
		status, payload, consumed, err := protocol.DecodeResponse(c.buf)
		if err != nil {
			return 0, "", err
		}
		if consumed > 0 {
			c.buf = c.buf[consumed:]
			if len(c.buf) == 0 {
				c.buf = nil
			}
			return status, string(payload), nil
		}
		n, err := c.conn.Read(scratch)
		if n > 0 {
			c.buf = append(c.buf, scratch[:n]...)
		}
		if err != nil {
			return 0, "", err
		}
	}
}
