package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/de-bkg/gosrnx/pkg/gnss"
	"github.com/go-playground/validator/v10"
)

// Config holds the resolved CLI invocation: which direction to convert,
// the input/output paths, and an optional satellite-system filter.
type Config struct {
	Input  string `validate:"required,file"`
	Output string `validate:"required"`
	Decode bool

	Systems gnss.Systems

	LogLevel string `validate:"required,oneof=trace debug info warn error"`
}

var validate = validator.New()

// ValidateAndComplete fills in a default Output path when none was given,
// then validates the resulting Config.
func (c *Config) ValidateAndComplete() error {
	if c.Output == "" {
		c.Output = defaultOutput(c.Input, c.Decode)
	}
	return validate.Struct(c)
}

// defaultOutput derives an output path from the input path by swapping its
// extension: a RINEX observation file compresses to ".srnx"; an ".srnx"
// file decompresses to ".rnx".
func defaultOutput(input string, decode bool) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if decode {
		return base + ".rnx"
	}
	return base + ".srnx"
}

func parseSystems(s string) (gnss.Systems, error) {
	if s == "" {
		return nil, nil
	}
	systems, err := gnss.ParseSatSystems(s)
	if err != nil {
		return nil, fmt.Errorf("--sat-sys: %w", err)
	}
	return systems, nil
}
