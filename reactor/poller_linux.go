//go:build linux

// File: reactor/poller_linux.go
// Package reactor Linux epoll(7) poller.
// License: Apache-2.0

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller watches descriptors level-triggered. Level triggering keeps
// the drain logic simple: a partially consumed buffer surfaces again on the
// next wait instead of requiring exhaustive reads per wakeup.
type epollPoller struct {
	epfd int
	raw  []unix.EpollEvent
}

// NewPoller creates the platform poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd}, nil
}

func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) SetWriteInterest(fd int, enabled bool) error {
	events := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if enabled {
		events |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(events []Event, timeout time.Duration) (int, error) {
	if timeout < 0 || timeout > MaxWait {
		timeout = MaxWait
	}
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	n, err := unix.EpollWait(p.epfd, raw, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			FD:       int(raw[i].Fd),
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
			Closed:   raw[i].Events&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0,
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
