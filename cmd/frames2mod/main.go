package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/staD020/frames2mod"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
	cmd := &cli.Command{
		Name:    "frames2mod",
		Usage:   "convert images, gifs and videos into animated texture override mods",
		Version: frames2mod.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "quiet, only display errors"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "verbose output"},
			&cli.StringSliceFlag{Name: "env", Value: []string{".env"}, Usage: "load settings from these .env `files`"},
		},
		Commands: []*cli.Command{
			generateCommand,
			assembleCommand,
			countCommand,
			lookupCommand,
			mediaCommand,
			formatsCommand,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			frames2mod.PrintHelp()
			return nil
		},
	}
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatalf("frames2mod failed: %v", err)
	}
}

var generateCommand = &cli.Command{
	Name:      "generate",
	Usage:     "print the generated ini of a manifest",
	ArgsUsage: "manifest.yaml",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the ini to `file` instead of stdout"},
	},
	Action: generate,
}

var assembleCommand = &cli.Command{
	Name:      "assemble",
	Usage:     "convert the frames of manifests and write the mod folders",
	ArgsUsage: "manifest.yaml [manifest.yaml ...]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o", "td"}, Usage: "destination `folder`, defaults to the last one used"},
		&cli.StringFlag{Name: "texconv", Usage: "path to the texconv `executable`"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "texconv preset, see the formats command"},
		&cli.IntFlag{Name: "gpu", Value: -2, Usage: "gpu adapter index, -1 lets texconv decide"},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "number of manifests assembled concurrently"},
		&cli.BoolFlag{Name: "keep", Usage: "fail instead of replacing an existing container folder"},
		&cli.BoolFlag{Name: "no-instructions", Usage: "do not write instructions.txt"},
		&cli.StringFlag{Name: "cpuprofile", Usage: "write cpu profile to `file`"},
	},
	Action: assemble,
}

var countCommand = &cli.Command{
	Name:      "count",
	Usage:     "print the number of frames of media files",
	ArgsUsage: "media [media ...]",
	Action:    count,
}

var lookupCommand = &cli.Command{
	Name:      "lookup",
	Usage:     "find the resource hash of a character",
	ArgsUsage: "name",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "suggestions", Value: 5, Usage: "number of suggestions if there is no exact match"},
	},
	Action: lookup,
}

var mediaCommand = &cli.Command{
	Name:      "media",
	Usage:     "find media files of a character in the media folder",
	ArgsUsage: "name",
	Action:    media,
}

var formatsCommand = &cli.Command{
	Name:  "formats",
	Usage: "list the texconv presets",
	Action: func(ctx context.Context, c *cli.Command) error {
		for i, f := range frames2mod.Formats() {
			def := ""
			if i == 0 {
				def = " (default)"
			}
			fmt.Printf("%-10s %s %s%s\n", f.Name, f.Format, strings.Join(f.Args, " "), def)
		}
		return nil
	},
}

func loadConfig(c *cli.Command) (frames2mod.Config, error) {
	cfg, err := frames2mod.LoadConfig(c.StringSlice("env")...)
	if err != nil {
		return cfg, fmt.Errorf("LoadConfig failed: %w", err)
	}
	return cfg, nil
}

func loadCatalog(cfg frames2mod.Config, verbose bool) *frames2mod.HashCatalog {
	catalog, err := frames2mod.LoadHashCatalog(cfg.HashesFile)
	if err != nil {
		if verbose {
			log.Printf("no hash catalog: %v", err)
		}
		return nil
	}
	return catalog
}

func generate(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("generate needs exactly one manifest")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	m, err := frames2mod.LoadManifest(c.Args().First())
	if err != nil {
		return err
	}
	set, err := m.Set(loadCatalog(cfg, c.Bool("verbose")))
	if err != nil {
		return err
	}
	for i := range set {
		if set[i].FrameCount > 0 {
			continue
		}
		if set[i].FrameCount, err = frames2mod.CountItemFrames(set[i]); err != nil {
			return fmt.Errorf("CountItemFrames failed: %w", err)
		}
	}
	ini, err := frames2mod.GenerateConfig(set)
	if err != nil {
		return fmt.Errorf("GenerateConfig failed: %w", err)
	}
	out := c.String("out")
	if out == "" {
		fmt.Print(ini)
		return nil
	}
	if err = os.WriteFile(out, []byte(ini), 0o644); err != nil {
		return fmt.Errorf("os.WriteFile %q failed: %w", out, err)
	}
	if !c.Bool("quiet") {
		fmt.Printf("wrote %q\n", out)
	}
	return nil
}

func assemble(ctx context.Context, c *cli.Command) error {
	t0 := time.Now()
	quiet, verbose := c.Bool("quiet"), c.Bool("verbose")
	if !quiet {
		fmt.Printf("frames2mod %v\n", frames2mod.Version)
	}
	if path := c.String("cpuprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("could not create CPU profile %q: %w", path, err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}
	filenames, err := expandWildcards(c.Args().Slice())
	if err != nil {
		return fmt.Errorf("expandWildcards failed: %w", err)
	}
	if len(filenames) == 0 {
		return fmt.Errorf("no manifests given")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("texconv"); v != "" {
		cfg.Texconv = v
	}
	if v := c.String("format"); v != "" {
		cfg.Format = v
	}
	if v := c.Int("gpu"); v > -2 {
		cfg.GPU = v
	}
	if v := c.Int("workers"); v > 0 {
		cfg.Workers = v
	}
	codec, err := cfg.Codec(verbose)
	if err != nil {
		return err
	}
	opt := cfg.Options(quiet, verbose)
	opt.NoOverwrite = c.Bool("keep")
	opt.NoInstructions = c.Bool("no-instructions")

	state, err := frames2mod.LoadState(cfg.StateFile)
	if err != nil {
		log.Printf("warning: ignoring state: %v", err)
	}
	root := c.String("out")
	if root == "" {
		root = state.LastFolder
	}
	if root == "" {
		root = "."
	}

	sets, err := loadSets(filenames, root, loadCatalog(cfg, verbose))
	if err != nil {
		return err
	}

	a := frames2mod.NewAssembler(opt, codec)
	if err = assembleAll(ctx, a, sets, root, cfg.Workers, quiet); err != nil {
		return err
	}
	state.LastFolder = root
	if err = state.Save(cfg.StateFile); err != nil {
		log.Printf("warning: %v", err)
	}
	if !quiet {
		fmt.Printf("assembled %d mod(s)\n", len(sets))
		fmt.Printf("elapsed: %v\n", time.Since(t0))
	}
	return nil
}

// loadSets reads all manifests and rejects two of them writing the same folder.
func loadSets(filenames []string, root string, catalog *frames2mod.HashCatalog) ([]frames2mod.PortraitSet, error) {
	sets := make([]frames2mod.PortraitSet, 0, len(filenames))
	seen := make(map[string]string, len(filenames))
	for _, filename := range filenames {
		m, err := frames2mod.LoadManifest(filename)
		if err != nil {
			return nil, err
		}
		set, err := m.Set(catalog)
		if err != nil {
			return nil, fmt.Errorf("manifest %q: %w", filename, err)
		}
		dir := filepath.Join(root, set.Primary().Name)
		if prev, ok := seen[dir]; ok {
			return nil, fmt.Errorf("manifests %q and %q both write to %q", prev, filename, dir)
		}
		seen[dir] = filename
		sets = append(sets, set)
	}
	return sets, nil
}

// assembleAll runs one job per set on up to workers goroutines. A failing set
// does not stop the others.
func assembleAll(ctx context.Context, a *frames2mod.Assembler, sets []frames2mod.PortraitSet, root string, workers int, quiet bool) error {
	if workers > len(sets) {
		workers = len(sets)
	}
	if !quiet && workers > 1 {
		fmt.Printf("started %d workers\n", workers)
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)
	errs := make([]error, len(sets))
	for i, set := range sets {
		g.Go(func() error {
			j := frames2mod.Start(ctx, a, set, root)
			r := j.Wait()
			if !r.OK {
				errs[i] = fmt.Errorf("%s: %s", set.Primary().Name, r.Message)
				log.Printf("job %s failed after %v", j.ID, r.Elapsed.Round(time.Millisecond))
				return nil
			}
			if !quiet {
				fmt.Printf("job %s done in %v\n", j.ID, r.Elapsed.Round(time.Millisecond))
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func count(ctx context.Context, c *cli.Command) error {
	filenames, err := expandWildcards(c.Args().Slice())
	if err != nil {
		return fmt.Errorf("expandWildcards failed: %w", err)
	}
	var errs []error
	for _, filename := range filenames {
		n, err := frames2mod.CountFrames(filename)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Printf("%s: %d frame(s)\n", filename, n)
	}
	return errors.Join(errs...)
}

func lookup(ctx context.Context, c *cli.Command) error {
	name := strings.Join(c.Args().Slice(), " ")
	if name == "" {
		return fmt.Errorf("lookup needs a name")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	catalog, err := frames2mod.LoadHashCatalog(cfg.HashesFile)
	if err != nil {
		return err
	}
	if hash, ok := catalog.Lookup(name); ok {
		fmt.Printf("%s --> %s\n", name, hash)
		return nil
	}
	ss := catalog.Suggest(name, c.Int("suggestions"))
	if len(ss) == 0 {
		return fmt.Errorf("no hash found for %q", name)
	}
	fmt.Printf("no exact match for %q, did you mean:\n", name)
	for _, s := range ss {
		hash, _ := catalog.Lookup(s)
		fmt.Printf("  %s --> %s\n", s, hash)
	}
	return nil
}

func media(ctx context.Context, c *cli.Command) error {
	name := strings.Join(c.Args().Slice(), " ")
	if name == "" {
		return fmt.Errorf("media needs a name")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ff, err := frames2mod.FindMedia(cfg.MediaDir, name)
	if err != nil {
		return err
	}
	if len(ff) == 0 && !c.Bool("quiet") {
		fmt.Printf("no media found for %q in %q\n", name, cfg.MediaDir)
	}
	for _, f := range ff {
		fmt.Println(f)
	}
	return nil
}

func expandWildcards(filenames []string) (result []string, err error) {
	for _, filename := range filenames {
		if !strings.ContainsAny(filename, "?*") {
			result = append(result, filename)
			continue
		}
		dir := filepath.Dir(filename)
		ff, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("os.ReadDir %q failed: %w", dir, err)
		}
		name := filepath.Base(filename)
		for _, f := range ff {
			if f.IsDir() {
				continue
			}
			ok, err := filepath.Match(name, f.Name())
			if err != nil {
				return nil, fmt.Errorf("filepath.Match %q failed: %w", filename, err)
			}
			if ok {
				result = append(result, filepath.Join(dir, f.Name()))
			}
		}
	}
	return result, nil
}
