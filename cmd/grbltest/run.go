package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grbltest/config"
	"github.com/mastercactapus/grbltest/fixture"
	"github.com/mastercactapus/grbltest/machine/grbl"
)

func newRunCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <fixture|dir>...",
		Short: "Run fixtures against a controller",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringP("config", "c", "", "TOML config file.")
	cmd.Flags().StringP("port", "p", "", "Serial device, or ws:// URL of the controller's websocket.")
	cmd.Flags().IntP("baud", "b", 0, "Baud rate.")
	cmd.Flags().Duration("timeout", 0, "Per-line read timeout.")
	cmd.Flags().Duration("ready-timeout", 0, "Wait for the controller to accept a file transfer.")
	cmd.Flags().Duration("until-timeout", 0, "Bound for `<...` ops (0 waits forever).")
	cmd.Flags().String("mount-prefix", "", "Prefix stripped from remote paths in hash queries.")
	cmd.Flags().Bool("reset", true, "Soft-reset the controller before each fixture.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runFixtures(cmd, d, cfg, args)
	}
	return cmd
}

// loadConfig reads the config file and applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port, _ = f.GetString("port")
	}
	if f.Changed("baud") {
		cfg.Baud, _ = f.GetInt("baud")
	}
	if f.Changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}
	if f.Changed("ready-timeout") {
		cfg.ReadyTimeout, _ = f.GetDuration("ready-timeout")
	}
	if f.Changed("until-timeout") {
		cfg.UntilTimeout, _ = f.GetDuration("until-timeout")
	}
	if f.Changed("mount-prefix") {
		cfg.MountPrefix, _ = f.GetString("mount-prefix")
	}
	if f.Changed("reset") {
		cfg.Reset, _ = f.GetBool("reset")
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	return cfg, cfg.Validate()
}

// expandPaths replaces directories with the fixtures they contain.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	return paths, nil
}

func loadFixtures(args []string) ([]*fixture.File, error) {
	paths, err := expandPaths(args)
	if err != nil {
		return nil, err
	}

	var files []*fixture.File
	var errs []error
	for _, p := range paths {
		f, err := fixture.Load(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return files, nil
}

func runFixtures(cmd *cobra.Command, d deps, cfg config.Config, args []string) error {
	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	files, err := loadFixtures(args)
	if err != nil {
		return err
	}

	rw, err := d.open(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	s := grbl.NewSession(rw)
	defer s.Close()
	s.Timeout = cfg.Timeout
	s.Log = log.With().Str("port", cfg.Port).Logger()

	opt := fixture.Options{
		Log:          log,
		MountPrefix:  cfg.MountPrefix,
		ReadyTimeout: cfg.ReadyTimeout,
		UntilTimeout: cfg.UntilTimeout,
	}

	out := cmd.OutOrStdout()
	var passed, failed int
	for _, f := range files {
		if cfg.Reset {
			err = s.SoftReset(cfg.ResetBanner)
			if err != nil {
				return fmt.Errorf("%s: soft reset: %w", f.Path, err)
			}
		}

		res := fixture.NewRunner(s, opt).Run(f)
		if res.State == fixture.Passed {
			passed++
			fmt.Fprintf(out, "PASS %s\n", f.Path)
			continue
		}

		failed++
		fmt.Fprintf(out, "FAIL %s: %v\n", f.Path, res.Err)
		if res.Fatal() {
			return res.Err
		}
		err = s.Drain(0)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, len(files))
	}
	return nil
}
