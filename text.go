// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bpowers/cfgc/internal/textproj"
	"github.com/bpowers/cfgc/schema"
)

func isSynthetic(name string) bool {
	return name == schema.FieldCRC || name == schema.FieldSize || name == schema.FieldVersion
}

// ImportText applies every assignment of a flat TOML document.  Keys that
// name no settable field fail with ErrUnknownField unless allowUnknown is
// set, in which case they are logged and skipped.  The record is left
// unchanged when any assignment fails.
func (r *Record) ImportText(text string, allowUnknown bool) error {
	kvs, err := textproj.Parse(text)
	if err != nil {
		return fmt.Errorf("textproj.Parse: %w", err)
	}

	saved := r.clone()
	for _, kv := range kvs {
		err := r.Set(kv.Key, kv.Value)
		if allowUnknown && (errors.Is(err, ErrUnknownField) || errors.Is(err, ErrFillerField)) {
			r.logger.Warn("unknown field ignored", zap.String("field", kv.Key))
			continue
		}
		if err != nil {
			r.slots = saved
			return err
		}
	}
	return nil
}

// ExportText renders the record as a flat TOML document in field order.
// Fillers are never written; crc, size and version only with
// includeHidden.
func (r *Record) ExportText(includeHidden bool) (string, error) {
	var sb strings.Builder
	w := textproj.NewWriter(&sb)
	for i, f := range r.fields {
		if f.Kind == schema.Filler || (!includeHidden && isSynthetic(f.Name)) {
			continue
		}
		if f.Comment != "" {
			w.Comment(f.Comment)
		}
		v := r.effective(i, f)
		switch {
		case f.Kind == schema.Enum:
			w.String(f.Name, f.Enum.Decode(v.u))
		case v.kind == Bytes:
			w.String(f.Name, string(bytes.TrimRight(v.b, "\x00")))
		case v.kind == Int:
			w.Int(f.Name, v.i)
		default:
			w.Uint(f.Name, v.u)
		}
	}
	if err := w.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SaveText patches the synthetic fields and renders the record as text.
func (r *Record) SaveText(computeChecksum, includeHidden bool) (string, error) {
	if err := r.PatchSyntheticFields(computeChecksum); err != nil {
		return "", err
	}
	return r.ExportText(includeHidden)
}
