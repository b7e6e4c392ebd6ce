// Command rnxsrnx converts between RINEX observation files and the
// compact SRNX container format.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/de-bkg/gosrnx/pkg/bytestream"
	"github.com/de-bkg/gosrnx/pkg/rinex"
	"github.com/de-bkg/gosrnx/pkg/srnx"
	"github.com/mholt/archiver/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Version:   "v0.1.0",
		Compiled:  time.Now(),
		HelpName:  "rnxsrnx",
		Usage:     "convert between RINEX observation files and SRNX containers",
		ArgsUsage: "<input> [output]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "decode", Usage: "convert SRNX back to RINEX instead of compressing"},
			&cli.StringFlag{Name: "sat-sys", Usage: "restrict compression to these satellite systems, e.g. \"GR\" or \"G,R\""},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace, debug, info, warn, error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("rnxsrnx: input file required", 1)
	}

	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("--log-level: %v", err), 1)
	}
	logrus.SetLevel(level)

	systems, err := parseSystems(c.String("sat-sys"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg := &Config{
		Input:    c.Args().Get(0),
		Output:   c.Args().Get(1),
		Decode:   c.Bool("decode"),
		Systems:  systems,
		LogLevel: c.String("log-level"),
	}
	if err := cfg.ValidateAndComplete(); err != nil {
		return cli.Exit(fmt.Sprintf("rnxsrnx: %v", err), 1)
	}

	if err := convert(cfg); err != nil {
		logrus.WithField("file", cfg.Input).Error(err)
		return cli.Exit(fmt.Sprintf("%s: %v", cfg.Input, err), exitCode(err))
	}
	return nil
}

// convert reads cfg.Input, transparently decompressing a .gz or .Z suffix
// first, and writes cfg.Output in the direction cfg.Decode selects.
func convert(cfg *Config) error {
	path, cleanup, err := maybeDecompress(cfg.Input)
	if err != nil {
		return err
	}
	defer cleanup()

	var out []byte
	if cfg.Decode {
		r, err := srnx.Open(path)
		if err != nil {
			return err
		}
		defer r.Close()
		out, err = srnx.Decode(r)
		if err != nil {
			return err
		}
	} else {
		stream, err := bytestream.OpenBuffered(path)
		if err != nil {
			return err
		}
		p, err := rinex.Open(stream)
		if err != nil {
			return err
		}
		out, err = srnx.Write(p, cfg.Systems)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(cfg.Output, out, 0o644)
}

// maybeDecompress transparently unpacks a .gz or .Z input, the way most
// IGS/EUREF distribution archives arrive, into a temporary file alongside
// the original. The returned cleanup removes that temporary file; it is a
// no-op when no decompression was needed.
func maybeDecompress(path string) (string, func(), error) {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, ".gz") && !strings.EqualFold(ext, ".z") {
		return path, func() {}, nil
	}

	tmpPath := strings.TrimSuffix(path, ext)
	if err := archiver.DecompressFile(path, tmpPath); err != nil {
		return "", nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

// exitCode maps a rinex.CodeError or srnx.CodeError to a process exit
// status; any other error (CLI usage, I/O) exits 1.
func exitCode(err error) int {
	var rce *rinex.CodeError
	if errors.As(err, &rce) {
		return int(rce.Code)
	}
	var sce *srnx.CodeError
	if errors.As(err, &sce) {
		return int(sce.Code)
	}
	return 1
}
