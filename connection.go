//go:build linux

package ircreactor

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Connection is a non-blocking duplex byte stream backed by a pollable
// descriptor. Read and Write return an error wrapping unix.EAGAIN when the
// call would block.
type Connection interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Fd() int
	RemoteAddr() string
	Close() error
}

type fileConnection struct {
	file   *os.File
	fd     int
	remote string
}

// DialConnection connects to the configured server and hands the socket over
// to a non-blocking Connection.
func DialConnection(config ServerConfig) (Connection, error) {
	timeout := time.Duration(config.DialTimeoutSec) * time.Second
	conn, err := net.DialTimeout(config.Net, config.Address, timeout)
	if err != nil {
		return nil, err
	}
	file, err := connToFile(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	fd := int(file.Fd())
	err = setSocketOptions(fd, config)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("[%d] connected to %s (%s)", fd, config.Address, config.Name)
	}
	return &fileConnection{file: file, fd: fd, remote: config.Address}, nil
}

// NewFileConnection wraps an already connected socket, switching it to
// non-blocking mode.
func NewFileConnection(file *os.File) (Connection, error) {
	fd := int(file.Fd())
	err := unix.SetNonblock(fd, true)
	if err != nil {
		return nil, os.NewSyscallError("setnonblock", err)
	}
	return &fileConnection{file: file, fd: fd, remote: file.Name()}, nil
}

func (c *fileConnection) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("read", err)
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (c *fileConnection) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("write", err)
		}
		return n, nil
	}
}

func (c *fileConnection) Fd() int {
	return c.fd
}

func (c *fileConnection) RemoteAddr() string {
	return c.remote
}

func (c *fileConnection) Close() error {
	return c.file.Close()
}

// isTransient reports whether err only means "not now": the operation would
// block or timed out, and should be retried on the next readiness event.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ETIMEDOUT) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
