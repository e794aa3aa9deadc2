package frames2mod

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const instructionsFilename = "instructions.txt"

// An Assembler converts a PortraitSet into a mod folder.
// It is not safe to run two assemblies writing to the same folder.
type Assembler struct {
	opt   Options
	codec Codec
	x     extractor
}

func NewAssembler(opt Options, codec Codec) *Assembler {
	return &Assembler{opt: opt, codec: codec, x: extractor{opt: opt}}
}

// AssemblePackage runs a.Assemble and reports the outcome as a message.
func AssemblePackage(ctx context.Context, a *Assembler, set PortraitSet, root string) (ok bool, message string) {
	p, err := a.Assemble(ctx, set, root)
	if err != nil {
		return false, err.Error()
	}
	return true, p.Summary()
}

// Assemble extracts, resizes and converts the frames of every item and writes
// the mod folder to root/{name}. On failure nothing created by this call is
// left behind; an existing container is only replaced once the new one is complete.
func (a *Assembler) Assemble(ctx context.Context, set PortraitSet, root string) (*Package, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	set = append(PortraitSet(nil), set...)
	if err := a.prepare(set); err != nil {
		return nil, err
	}
	config, err := GenerateConfig(set)
	if err != nil {
		return nil, fmt.Errorf("GenerateConfig failed: %w", err)
	}

	p := newPackage(root, set)
	if a.opt.NoOverwrite {
		if _, err := os.Stat(p.ContainerDir); err == nil {
			return nil, fsError(p.ContainerDir, "container already exists", fs.ErrExist)
		}
	}

	cleanup := &owned{verbose: a.opt.Verbose}
	success := false
	defer func() {
		if !success {
			cleanup.remove()
		}
	}()

	created, err := mkdirAllOwned(p.Root)
	if err != nil {
		return nil, fsError(p.Root, "mkdir failed", err)
	}
	cleanup.add(created)
	staging, err := os.MkdirTemp(p.Root, "."+set.ContainerName()+".staging-*")
	if err != nil {
		return nil, fsError(p.Root, "creating staging folder failed", err)
	}
	cleanup.add(staging)
	scratch, err := os.MkdirTemp(a.opt.ScratchDir, "frames2mod-*")
	if err != nil {
		return nil, fsError(a.opt.ScratchDir, "creating scratch folder failed", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Printf("warning: removing scratch folder %q failed: %v", scratch, err)
		}
	}()

	recount := false
	for i, it := range set {
		n, err := a.convertItem(ctx, set, i, filepath.Join(scratch, "item"+strconv.Itoa(i)), ItemDir(staging, set, i))
		if err != nil {
			return nil, err
		}
		if n != it.FrameCount {
			if !a.opt.Quiet {
				log.Printf("warning: portrait %d declared %d frame(s) but %d were decoded, using %d", i+1, it.FrameCount, n, n)
			}
			set[i].FrameCount = n
			recount = true
		}
		p.Frames[i] = n
	}
	if recount {
		if config, err = GenerateConfig(set); err != nil {
			return nil, fmt.Errorf("GenerateConfig failed: %w", err)
		}
	}
	p.Config = config

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if err = a.swap(staging, p.ContainerDir); err != nil {
		return nil, err
	}
	cleanup.add(p.ContainerDir)

	if err = os.WriteFile(p.IniPath, []byte(config), 0o644); err != nil {
		return nil, fsError(p.IniPath, "write failed", err)
	}
	cleanup.add(p.IniPath)
	if text := Instructions(set); text != "" && !a.opt.NoInstructions {
		path := filepath.Join(p.Root, instructionsFilename)
		if err = os.WriteFile(path, []byte(text), 0o644); err != nil {
			return nil, fsError(path, "write failed", err)
		}
		p.InstructionsPath = path
	}
	if err = p.stat(); err != nil {
		return nil, fsError(p.ContainerDir, "stat failed", err)
	}
	success = true
	if !a.opt.Quiet {
		fmt.Println(p.Summary())
	}
	return p, nil
}

// prepare fills in unknown frame counts and checks custom images exist.
func (a *Assembler) prepare(set PortraitSet) error {
	primary := set.Primary()
	for i := range set {
		it := &set[i]
		if it.FrameCount == 0 {
			n, err := CountItemFrames(*it)
			if err != nil {
				return err
			}
			it.FrameCount = n
			if a.opt.Verbose {
				log.Printf("portrait %d: %q has %d frame(s)", i+1, it.Source, n)
			}
		}
		if it.CustomStatic != "" {
			if _, err := os.Stat(it.CustomStatic); err != nil {
				return mediaError(it.CustomStatic, err)
			}
		}
		if i > 0 && (it.Width != primary.Width || it.Height != primary.Height) && !a.opt.Quiet {
			log.Printf("warning: portrait %d is %dx%d, the primary is %dx%d", i+1, it.Width, it.Height, primary.Width, primary.Height)
		}
	}
	return nil
}

// convertItem extracts the frames of item i into scratch and converts them,
// plus the optional custom thumbnail, into outDir. It returns the number of frames.
func (a *Assembler) convertItem(ctx context.Context, set PortraitSet, i int, scratch, outDir string) (int, error) {
	it := set[i]
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return 0, fsError(scratch, "mkdir failed", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fsError(outDir, "mkdir failed", err)
	}
	frames, err := a.x.extract(ctx, it, scratch)
	if err != nil {
		return 0, err
	}
	if !a.opt.Quiet {
		fmt.Printf("converting portrait %d: %d frame(s) from %q\n", i+1, len(frames), it.Source)
	}
	if err = convertBatches(ctx, a.codec, frames, outDir, a.opt.maxBatch()); err != nil {
		return 0, err
	}

	if it.CustomStatic == "" {
		return len(frames), nil
	}
	dir := filepath.Join(scratch, "static")
	if err = os.Mkdir(dir, 0o755); err != nil {
		return 0, fsError(dir, "mkdir failed", err)
	}
	thumb := filepath.Join(dir, strings.TrimSuffix(thumbnailFilename, ".dds")+".png")
	if err = resizeTo(it.CustomStatic, thumb, it.Width, it.Height); err != nil {
		return 0, err
	}
	if err = convertBatches(ctx, a.codec, []string{thumb}, outDir, 1); err != nil {
		return 0, err
	}
	if a.opt.Verbose {
		log.Printf("converted custom thumbnail %q", it.CustomStatic)
	}
	return len(frames), nil
}

// swap moves the staged container into place, replacing a previous one.
func (a *Assembler) swap(staging, container string) error {
	if _, err := os.Stat(container); err == nil {
		if a.opt.NoOverwrite {
			return fsError(container, "container already exists", fs.ErrExist)
		}
		if a.opt.Verbose {
			log.Printf("replacing %q", container)
		}
		if err = os.RemoveAll(container); err != nil {
			return fsError(container, "removing previous container failed", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fsError(container, "stat failed", err)
	}
	if err := os.Rename(staging, container); err != nil {
		return fsError(container, "rename failed", err)
	}
	return nil
}

// Instructions returns the key binding help written next to the ini, or ""
// if the package has no key bindings.
func Instructions(set PortraitSet) string {
	if len(set) == 0 || !hasToggles(set) {
		return ""
	}
	var b strings.Builder
	if set.IsMulti() {
		b.WriteString("Instructions for Switching Portraits:\n")
		fmt.Fprintf(&b, "- Press '%s' arrow key to cycle through portraits backwards.\n", keySwitchLeft)
		fmt.Fprintf(&b, "- Press '%s' arrow key to cycle through portraits forwards.\n\n", keySwitchRight)
		b.WriteString("The following keys affect the currently visible portrait:\n")
		fmt.Fprintf(&b, "- Press '%s' to pause/play the animation.\n", keyPause)
		fmt.Fprintf(&b, "- Press '%s' to switch between the animation and its designated thumbnail frame.\n", keyStatic)
		return b.String()
	}
	b.WriteString("Instructions for Thumbnail/Animation Toggle:\n")
	fmt.Fprintf(&b, "- Press '%s' to pause/play the animation.\n", keyPause)
	fmt.Fprintf(&b, "- Press '%s' to switch between the animation and the thumbnail image.\n", keyStatic)
	return b.String()
}
