//go:build !linux

// File: transport/sock_stub.go
// Package transport stub for platforms without a socket implementation.
// License: Apache-2.0

package transport

import "errors"

var errUnsupported = errors.New("transport: this platform is not supported")

func Listen(addr string) (int, error)           { return -1, errUnsupported }
func Accept(listenFD int) (int, string, error)  { return -1, "", errUnsupported }
func Read(fd int, buf []byte) (int, error)      { return 0, errUnsupported }
func Write(fd int, buf []byte) (int, error)     { return 0, errUnsupported }
func Close(fd int) error                        { return errUnsupported }
func LocalPort(fd int) (int, error)             { return 0, errUnsupported }
