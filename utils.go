//go:build linux

package ircreactor

import (
	"errors"
	"fmt"
	"net"
	"os"
)

var errUnsupportedConn = errors.New("can't cast net.Conn to *net.TCPConn")

// connToFile duplicates the descriptor behind a TCP connection and closes the
// original, leaving the returned file as the only owner of the socket.
func connToFile(conn net.Conn) (*os.File, error) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, errUnsupportedConn
	}
	file, err := tcpConn.File()
	if err != nil {
		return nil, fmt.Errorf("dup socket of %s: %w", conn.RemoteAddr(), err)
	}
	err = tcpConn.Close()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}
