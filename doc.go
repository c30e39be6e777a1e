// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package cfgc converts device configuration images between their
// fixed binary layout and a flat TOML text form.
//
// A layout is compiled once from a C++ header with schema.Compile.  A
// Record holds one value per field of that layout and can be filled from
// binary images, text and individual assignments, then written out in
// either form:
//
//	s, err := schema.Compile(f)
//	...
//	r := cfgc.NewRecord(s)
//	if err := r.ImportBinary(img, cfgc.ForceStrict); err != nil {
//		...
//	}
//	text, err := r.SaveText(true, false)
package cfgc
