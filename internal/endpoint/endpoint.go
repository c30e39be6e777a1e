// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package endpoint resolves the names given on the command line to the
// places an image is read from or written to: local files, stdio, or a
// device reached over TFTP.
package endpoint

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DevicePrefix selects a device: MSTD, MSTD:host, MSTD::host or
	// MSTD://host.
	DevicePrefix = "MSTD"
	DefaultHost  = "192.168.4.1"
	// Stdio reads stdin or writes stdout.
	Stdio = "-"

	binSuffix        = ".bin"
	fullConfigSuffix = "full.cfg"
	firmwareMinSize  = 100 * 1024
)

var ErrBadDeviceName = errors.New("expected MSTD or MSTD://<ip or host name>")

type Kind uint8

const (
	KindFile Kind = iota
	KindStdio
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindStdio:
		return "stdio"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Mode picks the file a device transfer addresses.
type Mode uint8

const (
	ModeConfig Mode = iota
	ModeFull
	ModeFirmware
)

// RemoteName is the TFTP file name the device serves for a mode.
func (m Mode) RemoteName() string {
	switch m {
	case ModeFull:
		return "full.cfg"
	case ModeFirmware:
		return "fw.bin"
	default:
		return "cfg.cfg"
	}
}

type Endpoint struct {
	Kind Kind
	// Name is the local path, or the remote file name for devices.
	Name string
	Host string
}

func (e Endpoint) String() string {
	if e.Kind == KindDevice {
		return fmt.Sprintf("%s://%s/%s", DevicePrefix, e.Host, e.Name)
	}
	return e.Name
}

// IsBinary reports whether the endpoint carries a binary image.  Devices
// always do; files do when named *.bin or *full.cfg.
func (e Endpoint) IsBinary() bool {
	switch e.Kind {
	case KindDevice:
		return true
	case KindFile:
		return strings.HasSuffix(e.Name, binSuffix) || IsFullConfigName(e.Name)
	default:
		return false
	}
}

// IsDeviceName reports whether name addresses a device.
func IsDeviceName(name string) bool {
	return name == DevicePrefix || strings.HasPrefix(name, DevicePrefix+":")
}

// Parse resolves a command line name.  mode only affects devices.
func Parse(name string, mode Mode, defaultHost string) (Endpoint, error) {
	switch {
	case name == Stdio:
		return Endpoint{Kind: KindStdio, Name: name}, nil
	case name == DevicePrefix:
		if defaultHost == "" {
			defaultHost = DefaultHost
		}
		return Endpoint{Kind: KindDevice, Name: mode.RemoteName(), Host: defaultHost}, nil
	case IsDeviceName(name):
		host := strings.TrimPrefix(name, DevicePrefix+":")
		host = strings.TrimPrefix(host, ":")
		host = strings.TrimPrefix(host, "//")
		if host == "" || strings.ContainsAny(host, "/ ") {
			return Endpoint{}, fmt.Errorf("%w: %q", ErrBadDeviceName, name)
		}
		return Endpoint{Kind: KindDevice, Name: mode.RemoteName(), Host: host}, nil
	case name == "":
		return Endpoint{}, errors.New("empty endpoint name")
	default:
		return Endpoint{Kind: KindFile, Name: filepath.Clean(name)}, nil
	}
}

// IsFullConfigName reports whether name refers to a whole config
// partition dump.
func IsFullConfigName(name string) bool {
	return strings.HasSuffix(name, fullConfigSuffix)
}

// IsFirmwareFile reports whether name is a firmware image: a *.bin file
// larger than any config partition.
func IsFirmwareFile(fs afero.Fs, name string) (bool, error) {
	if !strings.HasSuffix(name, binSuffix) {
		return false, nil
	}
	fi, err := fs.Stat(name)
	if err != nil {
		return false, fmt.Errorf("fs.Stat(%s): %w", name, err)
	}
	return fi.Size() > firmwareMinSize, nil
}
