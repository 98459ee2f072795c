//go:build linux

package ircreactor

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// raiseOpenFilesLimit lifts the soft RLIMIT_NOFILE to at least want, bounded
// by the hard limit. Failures are only logged.
func raiseOpenFilesLimit(want uint64) {
	limit := &unix.Rlimit{}
	err := unix.Getrlimit(unix.RLIMIT_NOFILE, limit)
	if err != nil {
		log.Error().Msgf("error occur while getting OS limit of open files: %+v", err)
		return
	}
	if limit.Cur >= want {
		return
	}
	limit.Cur = want
	if limit.Cur > limit.Max {
		limit.Cur = limit.Max
	}
	err = unix.Setrlimit(unix.RLIMIT_NOFILE, limit)
	if err != nil {
		log.Error().Msgf("error occur while setting OS limit of open files: %+v", err)
	}
}
