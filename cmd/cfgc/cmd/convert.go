// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/bpowers/cfgc"
	"github.com/bpowers/cfgc/internal/endpoint"
)

type override struct {
	key   string
	value string
}

func isOverride(arg string) bool {
	return strings.Contains(arg, "=")
}

// splitArgs separates key=value overrides from endpoint names and picks
// the destination.
func (r *runner) splitArgs(args []string) (srcs []string, dst string, overrides []override, err error) {
	overrides = lo.Map(lo.Filter(args, func(arg string, _ int) bool {
		return isOverride(arg)
	}), func(arg string, _ int) override {
		key, value, _ := strings.Cut(arg, "=")
		return override{key: strings.TrimSpace(key), value: value}
	})
	names := lo.Reject(args, func(arg string, _ int) bool {
		return isOverride(arg)
	})
	if len(names) == 0 {
		return nil, "", nil, errors.New("at least one config name expected")
	}

	switch {
	case r.flags.newConfig:
		if len(names) != 1 {
			return nil, "", nil, fmt.Errorf("--new takes exactly one config name, found %d", len(names))
		}
		return nil, names[0], overrides, nil
	case r.flags.update:
		return names, names[0], overrides, nil
	default:
		if len(names) < 2 {
			return nil, "", nil, errors.New("source and destination configs expected")
		}
		return names[:len(names)-1], names[len(names)-1], overrides, nil
	}
}

func (r *runner) convert(ctx context.Context, args []string) error {
	srcs, dst, overrides, err := r.splitArgs(args)
	if err != nil {
		return err
	}

	if len(srcs) == 1 && endpoint.IsDeviceName(dst) && !endpoint.IsDeviceName(srcs[0]) && srcs[0] != endpoint.Stdio {
		isFirmware, err := endpoint.IsFirmwareFile(r.env.fs, srcs[0])
		if err != nil {
			return err
		}
		if isFirmware {
			if len(overrides) > 0 {
				return errors.New("firmware upload takes no value overrides")
			}
			return r.copy(ctx, srcs[0], dst, endpoint.ModeConfig, endpoint.ModeFirmware)
		}
	}

	if r.flags.bypass {
		if len(srcs) != 1 || len(overrides) > 0 {
			return errors.New("--bypass copies exactly one source to one destination without overrides")
		}
		mode := endpoint.ModeConfig
		if endpoint.IsFullConfigName(srcs[0]) || endpoint.IsFullConfigName(dst) {
			mode = endpoint.ModeFull
		}
		return r.copy(ctx, srcs[0], dst, mode, mode)
	}

	return r.transcode(ctx, srcs, dst, overrides)
}

// copy moves an image unchanged; both ends must be binary.
func (r *runner) copy(ctx context.Context, srcName, dstName string, srcMode, dstMode endpoint.Mode) error {
	src, err := endpoint.Parse(srcName, srcMode, r.cfg.Device.Host)
	if err != nil {
		return err
	}
	dst, err := endpoint.Parse(dstName, dstMode, r.cfg.Device.Host)
	if err != nil {
		return err
	}
	if !src.IsBinary() || !dst.IsBinary() {
		return fmt.Errorf("raw copy needs binary source and destination, got %s and %s", src, dst)
	}

	data, err := r.io.Read(ctx, src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := r.io.Write(ctx, dst, data); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	r.logger.Info("copied", zap.Stringer("from", src), zap.Stringer("to", dst), zap.Int("bytes", len(data)))
	return nil
}

// transcode merges every source into one record, applies the overrides
// and writes the destination in its own format.
func (r *runner) transcode(ctx context.Context, srcs []string, dstName string, overrides []override) error {
	s, err := r.compileSchema()
	if err != nil {
		return err
	}
	rec := cfgc.NewRecord(s, cfgc.WithLogger(r.logger))

	for _, name := range srcs {
		src, err := endpoint.Parse(name, endpoint.ModeConfig, r.cfg.Device.Host)
		if err != nil {
			return err
		}
		data, err := r.io.Read(ctx, src)
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
		if src.IsBinary() {
			err = rec.ImportBinary(data, cfgc.Force(r.flags.force))
		} else {
			err = rec.ImportText(string(data), r.flags.force > 0)
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", src, err)
		}
		r.logger.Debug("loaded", zap.Stringer("from", src), zap.Bool("binary", src.IsBinary()))
	}

	for _, o := range overrides {
		err := rec.SetString(o.key, o.value)
		if errors.Is(err, cfgc.ErrUnknownField) {
			r.logger.Warn("override ignored, no such field",
				zap.String("field", o.key),
				zap.Strings("fields", s.FieldNames()))
			continue
		}
		if err != nil {
			return fmt.Errorf("override %s: %w", o.key, err)
		}
	}

	dst, err := endpoint.Parse(dstName, endpoint.ModeConfig, r.cfg.Device.Host)
	if err != nil {
		return err
	}
	var out []byte
	if dst.IsBinary() {
		out, err = rec.SaveBinary(!r.flags.unsafeCRC)
	} else {
		var text string
		text, err = rec.SaveText(!r.flags.unsafeCRC, r.flags.hiddenFields)
		out = []byte(text)
	}
	if err != nil {
		return err
	}
	if err := r.io.Write(ctx, dst, out); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	r.logger.Debug("saved", zap.Stringer("to", dst), zap.Int("bytes", len(out)))
	return nil
}
