package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const usage = `tristeg hides short ASCII messages in the least significant bits of a
grayscale image and stores images as triangular split files.

Usage:
  tristeg [--config FILE] [--verbose] <command> [flags] args

Commands:
  split  <image> <out.tri>                  convert an image to a triangular file
  join   <in.tri> <out.png>                 rebuild a PNG from a triangular file
  hide   -m TEXT <image|in.tri> <out.tri>   embed a message and save as triangular file
  reveal -n LENGTH <in.tri|image>           extract a message of LENGTH characters
  info   <in.tri>                           print dimensions, capacity and digest
  diff   <a> <b> <out.png>                  write the absolute pixel difference
  filter [--kind K] [--kernel N] [--sigma S] [--amount A] <in> <out>
                                            apply mean, gaussian or unsharp filtering

Files ending in .tri or .tri.zst are read as triangular files; anything
else is decoded as PNG, JPEG or GIF and converted to gray. Triangular
output is always plain text, so .zst output names are refused.

Global flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tristeg: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	png    png.CompressionLevel
}

func run(args []string, stdout, stderr io.Writer) error {
	var configPath string
	var verbose bool

	flagSet := pflag.NewFlagSet("tristeg", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $"+configEnv+")")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	compression, err := cfg.Compression()
	if err != nil {
		return err
	}

	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
		stderr: stderr,
		png:    compression,
	}

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "split":
		return a.split(commandArgs)
	case "join":
		return a.join(commandArgs)
	case "hide":
		return a.hide(commandArgs)
	case "reveal":
		return a.reveal(commandArgs)
	case "info":
		return a.info(commandArgs)
	case "diff":
		return a.diff(commandArgs)
	case "filter":
		return a.filter(commandArgs)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) flags(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	return flagSet
}

// parse runs a subcommand flag set and checks the positional count.
// done reports that help was printed and the command should stop.
func parse(flagSet *pflag.FlagSet, args []string, want int) (positional []string, done bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, err
	}
	positional = flagSet.Args()
	if len(positional) != want {
		return nil, false, fmt.Errorf("%s: expected %d arguments, got %d", flagSet.Name(), want, len(positional))
	}
	return positional, false, nil
}

func isTriangular(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tri") || strings.HasSuffix(lower, ".tri.zst")
}

func (a *app) loadImage(path string) (*GrayImage, error) {
	if !isTriangular(path) {
		return LoadGrayImage(path)
	}
	s, err := a.loadSecret(path)
	if err != nil {
		return nil, err
	}
	return s.Reconstruct()
}

func (a *app) loadSecret(path string) (*SecretImage, error) {
	s, framed, err := loadSecretFile(path)
	if framed {
		a.logger.Debug("zstd-framed input", "path", path)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded triangular file", "path", path, "width", s.Width(), "height", s.Height())
	return s, nil
}

func (a *app) checkOutput(path string) error {
	if a.cfg.Overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s exists and overwrite is disabled", path)
	}
	return nil
}

func (a *app) saveSecret(s *SecretImage, path string) error {
	if err := a.checkOutput(path); err != nil {
		return err
	}
	return s.SaveToFile(path)
}

func (a *app) savePNG(img *GrayImage, path string) error {
	if err := a.checkOutput(path); err != nil {
		return err
	}
	return img.Save(path, a.png)
}

func (a *app) split(args []string) error {
	flagSet := a.flags("split")
	paths, done, err := parse(flagSet, args, 2)
	if done || err != nil {
		return err
	}

	img, err := a.loadImage(paths[0])
	if err != nil {
		return err
	}
	s := Split(img)
	if err := a.saveSecret(s, paths[1]); err != nil {
		return err
	}
	a.logger.Info("split", "input", paths[0], "output", paths[1],
		"width", s.Width(), "height", s.Height(), "upper", len(s.upper), "lower", len(s.lower))
	return nil
}

func (a *app) join(args []string) error {
	flagSet := a.flags("join")
	paths, done, err := parse(flagSet, args, 2)
	if done || err != nil {
		return err
	}

	s, err := a.loadSecret(paths[0])
	if err != nil {
		return err
	}
	img, err := s.Reconstruct()
	if err != nil {
		return err
	}
	if err := a.savePNG(img, paths[1]); err != nil {
		return err
	}
	a.logger.Info("join", "input", paths[0], "output", paths[1], "width", img.Width(), "height", img.Height())
	return nil
}

func (a *app) hide(args []string) error {
	var message string
	flagSet := a.flags("hide")
	flagSet.StringVarP(&message, "message", "m", "", "7-bit ASCII text to hide")
	paths, done, err := parse(flagSet, args, 2)
	if done || err != nil {
		return err
	}
	if message == "" {
		return errors.New("hide: --message is required")
	}

	img, err := a.loadImage(paths[0])
	if err != nil {
		return err
	}
	s, err := Hide(img, message)
	if err != nil {
		return err
	}
	if err := a.saveSecret(s, paths[1]); err != nil {
		return err
	}
	a.logger.Info("hide", "input", paths[0], "output", paths[1],
		"chars", len(message), "bits", len(message)*bitsPerChar, "capacity", Capacity(img))
	fmt.Fprintf(a.stdout, "hid %d characters in %s; reveal with --length %d\n", len(message), paths[1], len(message))
	return nil
}

func (a *app) reveal(args []string) error {
	var length int
	flagSet := a.flags("reveal")
	flagSet.IntVarP(&length, "length", "n", 0, "message length in characters")
	paths, done, err := parse(flagSet, args, 1)
	if done || err != nil {
		return err
	}
	if length <= 0 {
		return errors.New("reveal: --length must be positive")
	}

	img, err := a.loadImage(paths[0])
	if err != nil {
		return err
	}
	bits, err := ExtractBits(img, length)
	if err != nil {
		return err
	}
	message, err := DecryptMessage(bits)
	if err != nil {
		return err
	}
	a.logger.Debug("reveal", "input", paths[0], "bits", len(bits))
	fmt.Fprintln(a.stdout, message)
	return nil
}

func (a *app) info(args []string) error {
	flagSet := a.flags("info")
	paths, done, err := parse(flagSet, args, 1)
	if done || err != nil {
		return err
	}

	s, err := a.loadSecret(paths[0])
	if err != nil {
		return err
	}
	digest, err := s.Digest()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "width:    %d\n", s.Width())
	fmt.Fprintf(a.stdout, "height:   %d\n", s.Height())
	fmt.Fprintf(a.stdout, "upper:    %d\n", len(s.upper))
	fmt.Fprintf(a.stdout, "lower:    %d\n", len(s.lower))
	fmt.Fprintf(a.stdout, "capacity: %d characters\n", capacityFor(s.Width(), s.Height()))
	fmt.Fprintf(a.stdout, "blake3:   %s\n", FormatDigest(digest))
	return nil
}

func (a *app) diff(args []string) error {
	flagSet := a.flags("diff")
	paths, done, err := parse(flagSet, args, 3)
	if done || err != nil {
		return err
	}

	left, err := a.loadImage(paths[0])
	if err != nil {
		return err
	}
	right, err := a.loadImage(paths[1])
	if err != nil {
		return err
	}
	forward, err := left.Sub(right)
	if err != nil {
		return err
	}
	backward, err := right.Sub(left)
	if err != nil {
		return err
	}
	delta, err := forward.Add(backward)
	if err != nil {
		return err
	}

	changed := 0
	for _, v := range delta.pix {
		if v != 0 {
			changed++
		}
	}
	if err := a.savePNG(delta, paths[2]); err != nil {
		return err
	}
	a.logger.Info("diff", "left", paths[0], "right", paths[1], "output", paths[2], "changed", changed)
	fmt.Fprintf(a.stdout, "%d of %d pixels differ\n", changed, len(delta.pix))
	return nil
}

func (a *app) filter(args []string) error {
	var kind string
	var kernel int
	var sigma, amount float64
	flagSet := a.flags("filter")
	flagSet.StringVar(&kind, "kind", "gaussian", "mean, gaussian or unsharp")
	flagSet.IntVar(&kernel, "kernel", 3, "odd kernel size")
	flagSet.Float64Var(&sigma, "sigma", 1.0, "gaussian standard deviation")
	flagSet.Float64Var(&amount, "amount", 1.0, "unsharp sharpening amount")
	paths, done, err := parse(flagSet, args, 2)
	if done || err != nil {
		return err
	}

	img, err := a.loadImage(paths[0])
	if err != nil {
		return err
	}
	switch kind {
	case "mean":
		err = img.MeanFilter(kernel)
	case "gaussian":
		err = img.GaussianSmoothing(kernel, sigma)
	case "unsharp":
		err = img.UnsharpMask(kernel, amount)
	default:
		return fmt.Errorf("filter: unknown kind %q", kind)
	}
	if err != nil {
		return err
	}

	if isTriangular(paths[1]) {
		err = a.saveSecret(Split(img), paths[1])
	} else {
		err = a.savePNG(img, paths[1])
	}
	if err != nil {
		return err
	}
	a.logger.Info("filter", "input", paths[0], "output", paths[1], "kind", kind, "kernel", kernel)
	return nil
}
