// motionbake bakes animation clip documents into compact motion documents
// and rebuilds clips from them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/motionbake/internal/clip"
	"github.com/Faultbox/motionbake/internal/config"
	"github.com/Faultbox/motionbake/internal/logger"
	"github.com/Faultbox/motionbake/internal/pipeline"
	"github.com/Faultbox/motionbake/pkg/bake"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bake", "b":
		cmdBake(args)
	case "reconstruct", "import":
		cmdReconstruct(args)
	case "shapes":
		cmdShapes(args)
	case "info":
		cmdInfo(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`motionbake - animation keyframe baker

Usage:
  motionbake <command> [options]

Commands:
  bake <clip>                        Bake a clip into a motion document
  reconstruct <motion>               Rebuild a clip from a motion document
  shapes <clip>                      Print the shape timeline of a clip
  info <clip>                        Show clip range, channels and bake cost
  config [-save]                     Print or save the effective config

Options:
  -config <file>                     Config file (.yaml or .toml)
  -o <file>                          Output file (default: stdout or output.dir)
  -mode <euler|quaternion|keep>      Rotation output mode
  -format <yaml|toml>                Output format for stdout
  -optimize <t>                      General optimization threshold
  -optimize-rotation <t>             Rotation optimization threshold
  -interpolation <t>                 Interpolation threshold
  -normals <none|nulled|full>        Shape normals
  -watch                             Re-bake when the clip changes (bake)
  -shapes <clip>                     Reuse shapes of this clip (reconstruct)
  -save                              Save to the user config directory (config)
  -debug                             Enable debug logging

Examples:
  motionbake bake walk.yaml -o walk.motion.yaml
  motionbake bake walk.yaml -mode quaternion -watch -o out/walk.motion.toml
  motionbake reconstruct walk.motion.yaml -shapes walk.yaml -o walk.rebuilt.yaml
  motionbake shapes walk.yaml`)
}

// setup loads the configuration and starts logging for a subcommand.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newRunner(cfg *config.Config) *pipeline.Runner {
	r, err := pipeline.New(cfg, logger.Named("pipeline"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return r
}

// parseArgs parses fs allowing flags after the positional argument.
func parseArgs(fs *flag.FlagSet, args []string) string {
	var positional []string
	for {
		fs.Parse(args)
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if len(positional) != 1 {
		return ""
	}
	return positional[0]
}

func cmdBake(args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	output := fs.String("o", "", "Output file")
	watch := fs.Bool("watch", false, "Re-bake when the clip changes")

	path := parseArgs(fs, args)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: motionbake bake <clip> [-o out] [-watch]")
		os.Exit(1)
	}

	cfg := setup(&flags)
	defer logger.Sync()
	r := newRunner(cfg)

	run := func() error {
		c, err := clip.ReadClip(path)
		if err != nil {
			return err
		}
		res, err := r.Bake(c)
		if err != nil {
			return err
		}
		for _, part := range res.Skipped {
			logger.Debug("skipped", zap.String("part", part))
		}
		return emit(cfg, *output, c.Name, ".motion", res.Motion)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("watching", zap.String("path", path))
	err := pipeline.Watch(ctx, path, pipeline.DefaultDebounce, logger.Named("watch"), func() {
		if err := run(); err != nil {
			logger.Error("bake failed", zap.String("path", path), zap.Error(err))
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdReconstruct(args []string) {
	fs := flag.NewFlagSet("reconstruct", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	output := fs.String("o", "", "Output file")
	shapes := fs.String("shapes", "", "Clip whose shapes are reused")

	path := parseArgs(fs, args)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: motionbake reconstruct <motion> [-mode m] [-shapes clip] [-o out]")
		os.Exit(1)
	}

	cfg := setup(&flags)
	defer logger.Sync()
	r := newRunner(cfg)

	mode, err := bake.ParseRotationMode(cfg.Bake.RotationMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m, err := clip.ReadMotion(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var existing *clip.Shapes
	if *shapes != "" {
		c, err := clip.ReadClip(*shapes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		existing = c.Shapes
		cfg.Shape.Reuse = true
		r = newRunner(cfg)
	}

	out, err := r.Reconstruct(m, mode, existing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := emit(cfg, *output, m.Name, "", out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdShapes(args []string) {
	fs := flag.NewFlagSet("shapes", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)

	path := parseArgs(fs, args)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: motionbake shapes <clip>")
		os.Exit(1)
	}

	cfg := setup(&flags)
	defer logger.Sync()
	r := newRunner(cfg)

	c, err := clip.ReadClip(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	t, err := r.Timeline(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Action: %s\n", c.Shapes.Action)
	fmt.Printf("Shapes: %s\n", strings.Join(t.Shapes(), ", "))
	fmt.Println()
	fmt.Printf("%8s  %s\n", "FRAME", "SHAPE")
	fmt.Println(strings.Repeat("-", 30))
	for _, frame := range t.Frames() {
		shape := t.At(frame)
		if shape == "" {
			shape = "(basis)"
		}
		fmt.Printf("%8d  %s\n", frame+c.Start, shape)
	}
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: motionbake info <clip>")
		os.Exit(1)
	}

	c, err := clip.ReadClip(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clip:     %s\n", c.Name)
	fmt.Printf("Range:    %d - %d (%d frames)\n", c.Start, c.End, c.End-c.Start+1)
	fmt.Printf("Nodes:    %d\n", len(c.Nodes))
	fmt.Printf("Camera:   %v\n", c.Camera != nil)
	if c.Shapes != nil {
		fmt.Printf("Shapes:   %s (%d curves)\n", c.Shapes.Action, len(c.Shapes.Curves))
	}
	fmt.Printf("Channels: %d\n", c.Channels())
	fmt.Printf("Cost:     %d evaluations\n", c.Cost())
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	save := fs.Bool("save", false, "Save the effective config to the user config directory")
	fs.Parse(args)

	cfg, err := config.Load(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *save {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
		return
	}

	data, err := clip.Marshal(clip.FormatYAML, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

// emit writes v to output, to the configured output directory, or to
// stdout in that order of preference.
func emit(cfg *config.Config, output, name, suffix string, v any) error {
	format, err := clip.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if output == "" && cfg.Output.Dir != "" {
		output = filepath.Join(cfg.Output.Dir, name+suffix+format.Ext())
	}
	if output != "" {
		if err := clip.WriteFile(output, v); err != nil {
			return err
		}
		logger.Info("wrote", zap.String("path", output))
		return nil
	}

	data, err := clip.Marshal(format, v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
