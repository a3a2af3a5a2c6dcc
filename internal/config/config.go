package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/p-arndt/gotcc/tcc"
)

// Compiler is the profile applied to every new session.
type Compiler struct {
	LibPath         string            `yaml:"lib_path"`
	Options         string            `yaml:"options"`
	IncludePaths    []string          `yaml:"include_paths"`
	SysIncludePaths []string          `yaml:"sysinclude_paths"`
	LibraryPaths    []string          `yaml:"library_paths"`
	Libraries       []string          `yaml:"libraries"`
	Defines         map[string]string `yaml:"defines"`
	Undefines       []string          `yaml:"undefines"`
	Flags           map[string]bool   `yaml:"flags"` // flag name -> on
	OutputType      string            `yaml:"output_type"`
}

type Config struct {
	Compiler      Compiler `yaml:"compiler"`
	Trap          bool     `yaml:"trap"`
	MaxOutputSize string   `yaml:"max_output_size"`
	DBPath        string   `yaml:"db_path"` // empty disables the build journal
	LogLevel      string   `yaml:"log_level"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Compiler: Compiler{
			Defines:    make(map[string]string),
			Flags:      make(map[string]bool),
			OutputType: "memory",
		},
		Trap:          true,
		MaxOutputSize: "64MiB",
		LogLevel:      "info",
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TCCRUN_LIB_PATH"); v != "" {
		cfg.Compiler.LibPath = v
	}
	if v := os.Getenv("TCCRUN_OPTIONS"); v != "" {
		cfg.Compiler.Options = v
	}
	if v := os.Getenv("TCCRUN_INCLUDE_PATHS"); v != "" {
		cfg.Compiler.IncludePaths = splitList(v)
	}
	if v := os.Getenv("TCCRUN_LIBRARY_PATHS"); v != "" {
		cfg.Compiler.LibraryPaths = splitList(v)
	}
	if v := os.Getenv("TCCRUN_OUTPUT_TYPE"); v != "" {
		cfg.Compiler.OutputType = v
	}
	if v := os.Getenv("TCCRUN_TRAP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trap = b
		}
	}
	if v := os.Getenv("TCCRUN_MAX_OUTPUT_SIZE"); v != "" {
		cfg.MaxOutputSize = v
	}
	if v := os.Getenv("TCCRUN_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TCCRUN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the values that are only interpreted later, so a bad
// profile fails before any session is opened.
func (c *Config) Validate() error {
	if _, err := tcc.ParseOutputType(c.Compiler.OutputType); err != nil {
		return fmt.Errorf("compiler.output_type: %w", err)
	}
	for name := range c.Compiler.Flags {
		if _, err := tcc.ParseFlag(name); err != nil {
			return fmt.Errorf("compiler.flags: %w", err)
		}
	}
	if _, err := c.MaxOutputBytes(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) OutputType() (tcc.OutputType, error) {
	return tcc.ParseOutputType(c.Compiler.OutputType)
}

// MaxOutputBytes parses MaxOutputSize ("64MiB", "512k"). Zero means no
// limit.
func (c *Config) MaxOutputBytes() (int64, error) {
	if c.MaxOutputSize == "" || c.MaxOutputSize == "0" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.MaxOutputSize)
	if err != nil {
		return 0, fmt.Errorf("max_output_size: %w", err)
	}
	return n, nil
}

func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
