// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(e *env, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the compiled config layout",
		Long: `Compile the config header and print every enum and field with its
size and offset, followed by a fingerprint of the header text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd, e, f)
			if err != nil {
				return err
			}
			s, err := r.compileSchema()
			if err != nil {
				return err
			}
			if err := s.Describe(cmd.OutOrStdout()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "fingerprint = %016x\n", s.Fingerprint())
			return err
		},
	}
}
