package frames2mod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kovidgoyal/imaging"
	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var videoExts = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv", ".webm"}

var imageExts = []string{".png", ".gif", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}

type mediaKind byte

const (
	imageMedia mediaKind = iota
	videoMedia
	directoryMedia
)

func (k mediaKind) String() string {
	switch k {
	case imageMedia:
		return "image"
	case videoMedia:
		return "video"
	case directoryMedia:
		return "directory"
	}
	return ""
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func IsVideo(path string) bool {
	return hasExt(path, videoExts)
}

func kindOf(path string) (mediaKind, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return imageMedia, err
	}
	switch {
	case fi.IsDir():
		return directoryMedia, nil
	case IsVideo(path):
		return videoMedia, nil
	}
	return imageMedia, nil
}

// CountFrames returns the number of frames of the media at path.
// A directory counts one frame per image file.
func CountFrames(path string) (int, error) {
	kind, err := kindOf(path)
	if err != nil {
		return 0, mediaError(path, err)
	}
	switch kind {
	case directoryMedia:
		ff, err := frameFiles(path)
		if err != nil {
			return 0, mediaError(path, err)
		}
		if len(ff) == 0 {
			return 0, mediaError(path, errors.New("no image files found"))
		}
		return len(ff), nil
	case videoMedia:
		return probeVideoFrames(path)
	}
	frames, err := decodeFrames(path)
	if err != nil {
		return 0, err
	}
	return len(frames), nil
}

// CountItemFrames returns the number of frames it.Source yields once
// extracted. Unlike CountFrames it honours it.FPS for videos.
func CountItemFrames(it PortraitItem) (int, error) {
	if it.FPS <= 0 || !IsVideo(it.Source) {
		return CountFrames(it.Source)
	}
	out, err := ffmpeg.Probe(it.Source)
	if err != nil {
		return 0, mediaError(it.Source, fmt.Errorf("ffprobe failed: %w", err))
	}
	return videoFrames(out, it.FPS), nil
}

// probeVideoFrames reads nb_frames of the first video stream, 1 if unknown.
func probeVideoFrames(path string) (int, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, mediaError(path, fmt.Errorf("ffprobe failed: %w", err))
	}
	return videoFrames(out, 0), nil
}

// videoFrames returns the frame count of the first video stream in ffprobe
// json output. With fps above zero it is the duration times fps, rounded up.
func videoFrames(probe string, fps float64) int {
	stream := gjson.Get(probe, `streams.#(codec_type=="video")`)
	if fps > 0 {
		d := stream.Get("duration").Float()
		if d <= 0 {
			d = gjson.Get(probe, "format.duration").Float()
		}
		if n := int(math.Ceil(d*fps - 1e-9)); n > 0 {
			return n
		}
		return 1
	}
	if n := stream.Get("nb_frames").Int(); n > 0 {
		return int(n)
	}
	return 1
}

// decodeFrames returns all frames of a still or animated image, composited.
func decodeFrames(path string) ([]image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		return decodeGIF(path)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, mediaError(path, err)
	}
	return []image.Image{img}, nil
}

// decodeGIF composites the frames of an animated gif onto a full size canvas,
// honouring the disposal method of each frame.
func decodeGIF(path string) ([]image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mediaError(path, err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, mediaError(path, err)
	}
	if len(g.Image) == 0 {
		return nil, mediaError(path, errors.New("no frames decoded"))
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	for i, frame := range g.Image {
		var previous *image.NRGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, imaging.Clone(canvas))
		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames, nil
}

// frameFiles returns the image files in dir in frame order: numerically when
// every name is a number, lexically otherwise.
func frameFiles(dir string) ([]string, error) {
	ee, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ff []string
	numeric := true
	for _, e := range ee {
		if e.IsDir() || !hasExt(e.Name(), imageExts) {
			continue
		}
		if _, err := strconv.Atoi(stem(e.Name())); err != nil {
			numeric = false
		}
		ff = append(ff, filepath.Join(dir, e.Name()))
	}
	if numeric {
		sort.Slice(ff, func(i, j int) bool {
			a, _ := strconv.Atoi(stem(ff[i]))
			b, _ := strconv.Atoi(stem(ff[j]))
			return a < b
		})
	} else {
		sort.Strings(ff)
	}
	return ff, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fsError(path, "create failed", err)
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err = enc.Encode(f, img); err != nil {
		f.Close()
		return fsError(path, "png encode failed", err)
	}
	if err = f.Close(); err != nil {
		return fsError(path, "close failed", err)
	}
	return nil
}

// extractor writes resized frames of one item into a scratch directory.
type extractor struct {
	opt Options
}

// extract writes every frame of it.Source resized to it.Width x it.Height as
// dir/0.png, dir/1.png, ... and returns the paths in frame order.
func (x extractor) extract(ctx context.Context, it PortraitItem, dir string) ([]string, error) {
	kind, err := kindOf(it.Source)
	if err != nil {
		return nil, mediaError(it.Source, err)
	}
	if x.opt.Verbose {
		log.Printf("extracting %s %q to %q", kind, it.Source, dir)
	}
	if kind == videoMedia {
		return x.extractVideo(ctx, it, dir)
	}

	var frames []image.Image
	if kind == directoryMedia {
		ff, err := frameFiles(it.Source)
		if err != nil {
			return nil, mediaError(it.Source, err)
		}
		for _, f := range ff {
			ii, err := decodeFrames(f)
			if err != nil {
				return nil, err
			}
			frames = append(frames, ii[0])
		}
	} else {
		if frames, err = decodeFrames(it.Source); err != nil {
			return nil, err
		}
	}
	if len(frames) == 0 {
		return nil, mediaError(it.Source, errors.New("no frames found"))
	}

	paths := make([]string, 0, len(frames))
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, strconv.Itoa(i)+".png")
		if err := writePNG(path, imaging.Resize(frame, it.Width, it.Height, imaging.Lanczos)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// extractVideo lets ffmpeg decode, resample and scale the video in one pass.
func (x extractor) extractVideo(ctx context.Context, it PortraitItem, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stderr := &bytes.Buffer{}
	err := videoStream(ctx, it, dir).
		OverWriteOutput().
		WithErrorOutput(stderr).
		Run()
	if err != nil {
		return nil, &Error{Kind: KindMedia, Path: it.Source, Msg: "ffmpeg failed", Output: stderr.String(), Err: err}
	}
	paths, err := frameFiles(dir)
	if err != nil {
		return nil, mediaError(it.Source, err)
	}
	if len(paths) == 0 {
		return nil, mediaError(it.Source, errors.New("ffmpeg decoded no frames"))
	}
	return paths, nil
}

// videoStream returns the ffmpeg graph writing dir/0.png, dir/1.png, ...
// An item FPS above zero resamples the video first.
func videoStream(ctx context.Context, it PortraitItem, dir string) *ffmpeg.Stream {
	in := ffmpeg.Input(it.Source)
	if it.FPS > 0 {
		in = in.Filter("fps", ffmpeg.Args{strconv.FormatFloat(it.FPS, 'f', -1, 64)})
	}
	scaled := in.Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", it.Width, it.Height)}, ffmpeg.KwArgs{"flags": "lanczos"})
	return ffmpeg.OutputContext(ctx, []*ffmpeg.Stream{scaled}, filepath.Join(dir, "%d.png"),
		ffmpeg.KwArgs{"start_number": 0, "vsync": "0", "pix_fmt": "rgba"})
}

// resizeTo decodes the first frame of src, resizes it and writes it as png to dst.
func resizeTo(src, dst string, width, height int) error {
	frames, err := decodeFrames(src)
	if err != nil {
		return err
	}
	return writePNG(dst, imaging.Resize(frames[0], width, height, imaging.Lanczos))
}

// FindMedia returns media files below dir whose name contains name, ignoring case.
// A missing dir is not an error.
func FindMedia(dir, name string) ([]string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !hasExt(path, imageExts) && !hasExt(path, videoExts) {
			return nil
		}
		if strings.Contains(strings.ToLower(stem(path)), name) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filepath.WalkDir %q failed: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
