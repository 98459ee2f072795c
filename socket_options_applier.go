//go:build linux

package ircreactor

import (
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// setSocketOptions puts fd into non-blocking mode and applies the buffer
// sizes from the server config. Only the O_NONBLOCK failure is fatal.
func setSocketOptions(fd int, config ServerConfig) error {
	err := unix.SetNonblock(fd, true)
	if err != nil {
		return os.NewSyscallError("setnonblock", err)
	}
	if config.RcvBuf > 0 {
		err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, config.RcvBuf)
		if err != nil {
			log.Error().Msgf("[%d] got error while setting socket options SO_RCVBUF: %+v", fd, err)
		}
	}
	if config.SndBuf > 0 {
		err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, config.SndBuf)
		if err != nil {
			log.Error().Msgf("[%d] got error while setting socket options SO_SNDBUF: %+v", fd, err)
		}
	}
	err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	if err != nil {
		log.Error().Msgf("[%d] got error while setting socket options SO_KEEPALIVE: %+v", fd, err)
	}
	err = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	if err != nil {
		log.Error().Msgf("[%d] got error while setting socket options TCP_NODELAY: %+v", fd, err)
	}
	return nil
}
