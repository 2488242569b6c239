// Saberwav conditions WAV files for the firmware: mono, 22050 Hz, 16-bit,
// normalized, faded against clicks. Inputs are files or directories; a
// directory keeps its layout under the output directory, so a sounds/ tree
// can be processed in place of the embedded one.
//
// With multiple -volumes, each clip is rendered once per level and the level
// name (quiet, medium, loud) is appended to the file stem.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dikkadev/prettyslog"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gopkg.in/yaml.v2"

	"saber/host/wavproc"
)

var (
	outDir   = flag.String("out", "optimized", "Output directory")
	volumes  = flag.String("volumes", "100", "Comma-separated volume percentages")
	manifest = flag.String("manifest", "", "YAML manifest to check the output tree against")
	verbose  = flag.Bool("verbose", false, "Log at debug level")
)

// Manifest names the clips the firmware expects: one <event>.wav per theme.
type Manifest struct {
	Themes []string `yaml:"themes"`
	Events []string `yaml:"events"`
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(prettyslog.NewPrettyslogHandler("saberwav",
		prettyslog.WithLevel(level),
	))

	if flag.NArg() == 0 && *manifest == "" {
		fmt.Fprintln(os.Stderr, "usage: saberwav [flags] <file-or-dir>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	levels, err := parseVolumes(*volumes)
	if err != nil {
		logger.Error("bad -volumes", "err", err)
		os.Exit(1)
	}

	failed := 0
	for _, arg := range flag.Args() {
		if err := processArg(logger, arg, levels); err != nil {
			logger.Error("processing failed", "input", arg, "err", err)
			failed++
		}
	}

	if *manifest != "" {
		missing, err := checkManifest(*manifest, *outDir)
		if err != nil {
			logger.Error("manifest check failed", "err", err)
			os.Exit(1)
		}
		for _, m := range missing {
			logger.Warn("missing clip", "path", m)
		}
		if len(missing) == 0 {
			logger.Info("manifest satisfied", "dir", *outDir)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func parseVolumes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if v < 1 || v > 100 {
			return nil, fmt.Errorf("volume %d out of range 1-100", v)
		}
		out = append(out, v)
	}
	return out, nil
}

// processArg handles one command line input, recursing into directories.
func processArg(logger *slog.Logger, arg string, levels []int) error {
	info, err := os.Stat(arg)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return processFile(logger, arg, filepath.Base(arg), levels)
	}

	return filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}
		rel, err := filepath.Rel(arg, path)
		if err != nil {
			return err
		}
		return processFile(logger, path, rel, levels)
	})
}

// processFile renders one input clip at every requested volume. rel is the
// path of the output relative to the output directory.
func processFile(logger *slog.Logger, path, rel string, levels []int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	for _, pct := range levels {
		out, err := wavproc.Process(buf, pct)
		if err != nil {
			return err
		}

		dst := filepath.Join(*outDir, outputName(rel, pct, len(levels) > 1))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := writeWav(dst, out); err != nil {
			return err
		}
		logger.Info("wrote clip",
			"path", dst,
			"samples", len(out.Data),
			"volume", pct)
	}
	return nil
}

// outputName keeps the clip name when a single volume is rendered so the
// output tree stays loadable by the firmware. Multi-volume runs get the
// level name in the stem.
func outputName(rel string, pct int, multi bool) string {
	if !multi {
		return rel
	}
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "_" + wavproc.VolumeName(pct) + ext
}

func writeWav(path string, buf *audio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f,
		buf.Format.SampleRate, buf.SourceBitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// checkManifest reports which clips the manifest requires but the output
// tree is missing.
func checkManifest(path, dir string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	var missing []string
	for _, theme := range m.Themes {
		for _, event := range m.Events {
			clip := filepath.Join(dir, theme, event+".wav")
			if _, err := os.Stat(clip); err != nil {
				missing = append(missing, clip)
			}
		}
	}
	return missing, nil
}
