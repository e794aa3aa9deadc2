package frames2mod

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// A Codec converts images into compressed textures. For every input it writes
// one file to outDir, named after the input with the .dds extension.
type Codec interface {
	Convert(ctx context.Context, inputs []string, outDir string) error
}

// A Format is a texconv preset.
type Format struct {
	Name   string
	Format string
	Args   []string
	// GPU is true if the preset accepts a -gpu index.
	GPU bool
}

func (f Format) String() string {
	return f.Name + " (" + f.Format + ")"
}

//go:embed "formats.yaml"
var formatsYaml []byte

var formats []Format

func init() {
	var err error
	formats, err = parseFormats(formatsYaml)
	if err != nil {
		panic(fmt.Errorf("parseFormats failed: %w", err))
	}
	if len(formats) == 0 {
		panic(fmt.Errorf("no formats found in %q", "formats.yaml"))
	}
}

func parseFormats(in []byte) (ff []Format, err error) {
	if err = yaml.Unmarshal(in, &ff); err != nil {
		return nil, err
	}
	for _, f := range ff {
		if f.Name == "" || f.Format == "" {
			return nil, fmt.Errorf("format %q without name or texconv format", f.Name)
		}
	}
	return ff, nil
}

// Formats returns the available presets, the first one is the default.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// LookupFormat returns the preset named name, or the default if name is empty.
func LookupFormat(name string) (Format, error) {
	if name == "" {
		return formats[0], nil
	}
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
		names = append(names, f.Name)
	}
	return Format{}, fmt.Errorf("unknown format %q, use one of %s", name, strings.Join(names, ", "))
}

// Texconv runs the texconv executable.
type Texconv struct {
	Path   string
	Format Format
	// GPU is the adapter index passed with -gpu, negative to leave it to texconv.
	GPU     int
	Verbose bool
}

func NewTexconv(path, format string, gpu int) (*Texconv, error) {
	if path == "" {
		return nil, fmt.Errorf("no texconv path given")
	}
	f, err := LookupFormat(format)
	if err != nil {
		return nil, err
	}
	return &Texconv{Path: path, Format: f, GPU: gpu}, nil
}

// Args returns the texconv command line for inputs.
func (t *Texconv) Args(inputs []string, outDir string) []string {
	args := []string{"-f", t.Format.Format}
	args = append(args, t.Format.Args...)
	if t.Format.GPU && t.GPU >= 0 {
		args = append(args, "-gpu", strconv.Itoa(t.GPU))
	}
	args = append(args, "-o", outDir)
	return append(args, inputs...)
}

// Convert runs texconv once for all inputs. A non-zero exit status returns
// an error carrying the verbatim output of texconv.
func (t *Texconv) Convert(ctx context.Context, inputs []string, outDir string) error {
	if len(inputs) == 0 {
		return nil
	}
	args := t.Args(inputs, outDir)
	if t.Verbose {
		log.Printf("running %s %s", t.Path, strings.Join(args, " "))
	}
	out, err := exec.CommandContext(ctx, t.Path, args...).CombinedOutput() // #nosec G204
	if err != nil {
		return &Error{Kind: KindCodec, Path: t.Path, Msg: fmt.Sprintf("converting %d file(s) to %s failed", len(inputs), t.Format), Output: string(out), Err: err}
	}
	return nil
}

// ddsName returns the codec output name for input.
func ddsName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".dds"
}

// convertBatches runs codec over inputs in chunks of batch and confirms every
// expected output exists.
func convertBatches(ctx context.Context, codec Codec, inputs []string, outDir string, batch int) error {
	for start := 0; start < len(inputs); start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batch
		if end > len(inputs) {
			end = len(inputs)
		}
		if err := codec.Convert(ctx, inputs[start:end], outDir); err != nil {
			return err
		}
	}
	for _, in := range inputs {
		out := filepath.Join(outDir, ddsName(in))
		if _, err := os.Stat(out); err != nil {
			return &Error{Kind: KindCodec, Path: out, Msg: "codec did not write the expected output", Err: err}
		}
	}
	return nil
}
