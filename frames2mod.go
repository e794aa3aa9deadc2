package frames2mod

import (
	"fmt"
	"path/filepath"
	"strings"
)

const Version = "0.3-dev"

// A PortraitItem is one animated or static image bound to a texture slot.
type PortraitItem struct {
	// Name is used for folder naming and must not contain path separators.
	Name string
	// Hash is the texture resource hash, used verbatim.
	Hash string
	// Source is a still image, animated image, video or a directory of numbered frames.
	Source string
	// FrameCount is the number of decoded frames of Source. Zero means unknown,
	// the Assembler probes it.
	FrameCount int
	Width      int
	Height     int
	// FPS resamples video sources before extraction, zero keeps the source rate.
	FPS float64

	// StaticToggle enables the pause and thumbnail key bindings.
	StaticToggle bool
	// StaticFrame is the 0-based frame shown in thumbnail mode.
	StaticFrame int
	// CustomStatic overrides StaticFrame with a separate image.
	CustomStatic string
}

// StaticToggleEnabled returns true if the thumbnail toggle has a second frame to toggle to.
func (it PortraitItem) StaticToggleEnabled() bool {
	return it.StaticToggle && it.FrameCount > 1
}

// staticFrame returns StaticFrame clamped into the frame range.
func (it PortraitItem) staticFrame() int {
	switch {
	case it.StaticFrame < 0:
		return 0
	case it.FrameCount > 0 && it.StaticFrame >= it.FrameCount:
		return it.FrameCount - 1
	}
	return it.StaticFrame
}

func (it PortraitItem) String() string {
	return fmt.Sprintf("%s (%s) %q %d frame(s) %dx%d", it.Name, it.Hash, it.Source, it.FrameCount, it.Width, it.Height)
}

// A PortraitSet is an ordered list of portraits. Item 0 is the primary, the
// others are alternates reachable by cyclic switching.
type PortraitSet []PortraitItem

func (s PortraitSet) IsMulti() bool {
	return len(s) > 1
}

func (s PortraitSet) Primary() PortraitItem {
	if len(s) == 0 {
		return PortraitItem{}
	}
	return s[0]
}

// ContainerName returns the name of the folder the mod loader scans, "{hash} - {name}".
func (s PortraitSet) ContainerName() string {
	p := s.Primary()
	return p.Hash + " - " + p.Name
}

// ItemFolder returns the folder of item i relative to the container, "" for the primary.
func ItemFolder(i int) string {
	if i == 0 {
		return ""
	}
	return fmt.Sprintf("Item%d", i+1)
}

// Options configure the Assembler.
type Options struct {
	Quiet   bool
	Verbose bool

	// ScratchDir is the parent of temporary frame folders, os.TempDir() when empty.
	ScratchDir string
	// MaxBatch limits the number of files passed to one codec invocation.
	MaxBatch int
	// NoInstructions skips writing instructions.txt.
	NoInstructions bool
	// NoOverwrite fails instead of replacing an existing container folder.
	NoOverwrite bool
}

const defaultMaxBatch = 256

func (opt Options) maxBatch() int {
	if opt.MaxBatch < 1 {
		return defaultMaxBatch
	}
	return opt.MaxBatch
}

// Validate checks the set before anything touches the filesystem.
func (s PortraitSet) Validate() error {
	if len(s) == 0 {
		return validationError("", "no portraits given")
	}
	p := s[0]
	switch {
	case strings.TrimSpace(p.Name) == "":
		return validationError("", "display name of the primary portrait is empty")
	case strings.TrimSpace(p.Hash) == "":
		return validationError("", "resource hash of the primary portrait is empty")
	case strings.ContainsAny(p.Name, `/\`) || p.Name != filepath.Base(p.Name) || p.Name == "." || p.Name == "..":
		return validationError(p.Name, "display name must not contain path separators")
	case strings.ContainsAny(p.Hash, `/\`):
		return validationError(p.Hash, "resource hash must not contain path separators")
	}
	for i, it := range s {
		if it.Source == "" {
			if i == 0 {
				return validationError("", "no source media selected for the primary portrait")
			}
			return validationError("", fmt.Sprintf("no source media selected for portrait %d", i+1))
		}
		if it.Width <= 0 || it.Height <= 0 {
			return validationError(it.Source, fmt.Sprintf("invalid target size %dx%d for portrait %d", it.Width, it.Height, i+1))
		}
		if it.FPS < 0 {
			return validationError(it.Source, fmt.Sprintf("negative fps %g for portrait %d", it.FPS, i+1))
		}
		if it.FrameCount < 0 {
			return validationError(it.Source, fmt.Sprintf("negative frame count %d for portrait %d", it.FrameCount, i+1))
		}
	}
	return nil
}

func PrintUsage() {
	fmt.Println("usage: ./frames2mod [-help -q -v --env file] <command> [arguments]")
}

func PrintHelp() {
	PrintUsage()
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  generate manifest.yaml         print the generated ini for a manifest")
	fmt.Println("  assemble manifest.yaml [...]   convert frames and write the mod folder")
	fmt.Println("  count media [...]              print the number of frames of media files")
	fmt.Println("  lookup name                    find the resource hash of a character")
	fmt.Println("  media name                     find media files for a character")
	fmt.Println("  formats                        list the texconv presets")
	fmt.Println()
	fmt.Println("keys in the generated mod:")
	fmt.Println("  p       pause/play the animation")
	fmt.Println("  o       toggle between the animation and its thumbnail")
	fmt.Println("  left    previous portrait (switch mode)")
	fmt.Println("  right   next portrait (switch mode)")
}
