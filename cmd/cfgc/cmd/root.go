// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bpowers/cfgc/internal/config"
	"github.com/bpowers/cfgc/internal/endpoint"
	"github.com/bpowers/cfgc/internal/tftp"
	"github.com/bpowers/cfgc/schema"
)

// env is everything the commands touch outside the process.
type env struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// transport overrides the TFTP client when set
	transport endpoint.Transport
}

type flags struct {
	schema       string
	settings     string
	bypass       bool
	newConfig    bool
	update       bool
	force        int
	unsafeCRC    bool
	hiddenFields bool
	quiet        bool
	verbose      bool
}

// Execute runs the command line against the real environment.
func Execute(ctx context.Context) error {
	root := newRootCmd(&env{
		fs:     afero.NewOsFs(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	})
	return root.ExecuteContext(ctx)
}

func newRootCmd(e *env) *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:   "cfgc SRC... [DST] [key=value...]",
		Short: "Convert MSTD config images between binary and text",
		Long: `cfgc reads one or more source configs, merges them in order, applies
key=value overrides and writes the destination.

Files ending in .bin (or full.cfg) are binary images, "-" is stdin or
stdout in text form, and everything else is TOML text.  MSTD,
MSTD:<host> and MSTD://<host> address a device over TFTP.

A single .bin source larger than 100 KiB sent to a device is uploaded as
firmware.`,
		Example: `  cfgc -n settings.toml ssid=home
  cfgc settings.toml MSTD
  cfgc MSTD -
  cfgc -u MSTD:10.0.0.7 oled_contrast=0x40
  cfgc -b MSTD backup_full.cfg`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd, e, &f)
			if err != nil {
				return err
			}
			defer func() {
				_ = r.logger.Sync()
			}()
			err = r.convert(cmd.Context(), args)
			if err != nil {
				r.logger.Error("conversion failed", zap.Error(err))
			}
			return err
		},
	}
	root.SetIn(e.stdin)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.schema, "config", "c", "", `C++ header with the binary Config structure (default from settings, else "setup_data.h")`)
	pf.StringVar(&f.settings, "settings", "", "YAML settings file")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "only report errors, no progress")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	fl := root.Flags()
	fl.BoolVarP(&f.bypass, "bypass", "b", false, "copy one binary image to another without decoding it")
	fl.BoolVarP(&f.newConfig, "new", "n", false, "create a new config from defaults; the only name is the destination")
	fl.BoolVarP(&f.update, "update", "u", false, "update the first source in place")
	fl.CountVarP(&f.force, "force", "f", "accept unsafe (-f) or invalid (-ff) binary images and unknown text keys")
	fl.BoolVar(&f.unsafeCRC, "unsafe-crc", false, "leave the checksum for the device to fill in (unsafe)")
	fl.BoolVar(&f.hiddenFields, "hidden-fields", false, "include crc, size and version in text output")

	root.AddCommand(newSchemaCmd(e, &f))
	return root
}

// runner holds the state shared by one invocation.
type runner struct {
	env    *env
	flags  *flags
	cfg    *config.Config
	logger *zap.Logger
	io     *endpoint.IO
}

func newRunner(cmd *cobra.Command, e *env, f *flags) (*runner, error) {
	cfg, err := config.Load(e.fs, f.settings)
	if err != nil {
		return nil, err
	}
	if f.schema == "" {
		f.schema = cfg.Schema
	}

	level, err := cfg.Log.ZapLevel()
	if err != nil {
		return nil, err
	}
	switch {
	case f.verbose:
		level = zapcore.DebugLevel
	case f.quiet:
		level = zapcore.ErrorLevel
	}
	logger := newLogger(e.stderr, level).Named(cmd.Name())

	r := &runner{
		env:    e,
		flags:  f,
		cfg:    cfg,
		logger: logger,
	}
	transport := e.transport
	if transport == nil {
		opts := []tftp.Option{
			tftp.WithPort(cfg.Device.Port),
			tftp.WithTimeout(cfg.Device.Timeout),
			tftp.WithRetries(cfg.Device.Retries),
			tftp.WithLogger(logger.Named("tftp")),
		}
		if r.showProgress() {
			opts = append(opts, tftp.WithProgress(r.progress))
		}
		transport = tftp.NewClient(opts...)
	}
	r.io = &endpoint.IO{
		Fs:        e.fs,
		Transport: transport,
		Stdin:     e.stdin,
		Stdout:    e.stdout,
	}
	return r, nil
}

func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// showProgress is true only for an interactive stderr.
func (r *runner) showProgress() bool {
	if r.flags.quiet {
		return false
	}
	f, ok := r.env.stderr.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progress reports uploads; downloads are small and have no known size.
func (r *runner) progress(name string, done, total int) {
	if total <= 0 {
		return
	}
	_, _ = fmt.Fprintf(r.env.stderr, "\rSending %s: %d%%", name, done*100/total)
	if done == total {
		_, _ = fmt.Fprintln(r.env.stderr)
	}
}

func (r *runner) compileSchema() (*schema.Schema, error) {
	f, err := r.env.fs.Open(r.flags.schema)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	s, err := schema.Compile(f, schema.WithLogger(r.logger.Named("schema")))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.flags.schema, err)
	}
	return s, nil
}
