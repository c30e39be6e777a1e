// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Transport moves whole files to and from a device.
type Transport interface {
	Fetch(ctx context.Context, host, name string) ([]byte, error)
	Deliver(ctx context.Context, host, name string, data []byte) error
}

var errNoTransport = errors.New("no device transport configured")

// IO performs endpoint reads and writes.
type IO struct {
	Fs        afero.Fs
	Transport Transport
	Stdin     io.Reader
	Stdout    io.Writer
}

func (o *IO) Read(ctx context.Context, e Endpoint) ([]byte, error) {
	switch e.Kind {
	case KindDevice:
		if o.Transport == nil {
			return nil, errNoTransport
		}
		return o.Transport.Fetch(ctx, e.Host, e.Name)
	case KindStdio:
		data, err := io.ReadAll(o.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	default:
		data, err := afero.ReadFile(o.Fs, e.Name)
		if err != nil {
			return nil, fmt.Errorf("afero.ReadFile: %w", err)
		}
		return data, nil
	}
}

func (o *IO) Write(ctx context.Context, e Endpoint, data []byte) error {
	switch e.Kind {
	case KindDevice:
		if o.Transport == nil {
			return errNoTransport
		}
		return o.Transport.Deliver(ctx, e.Host, e.Name, data)
	case KindStdio:
		if _, err := o.Stdout.Write(data); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	default:
		return o.writeFile(e.Name, data)
	}
}

// writeFile writes to a temporary file in the destination directory and
// renames it into place, so readers never see a partial image.
func (o *IO) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := afero.TempFile(o.Fs, dir, "cfgc.*.tmp")
	if err != nil {
		return fmt.Errorf("TempFile failed (may need permissions for dir %q): %w", dir, err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = o.Fs.Remove(tmp)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("f.Write: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("f.Close: %w", err)
	}
	if err := o.Fs.Chmod(tmp, 0644); err != nil {
		cleanup()
		return fmt.Errorf("fs.Chmod(0644): %w", err)
	}
	if err := o.Fs.Rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("fs.Rename: %w", err)
	}
	return nil
}
