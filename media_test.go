package frames2mod

import (
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t testing.TB, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeTestGIF(t testing.TB, path string, frames, w, h int) {
	t.Helper()
	g := &gif.GIF{}
	for i := 0; i < frames; i++ {
		img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetColorIndex(x, y, uint8(i*16+1))
			}
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 10)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gif.EncodeAll(f, g))
}

// writeTestFrames writes n numbered png frames into a new folder below dir.
func writeTestFrames(t testing.TB, dir string, n int) string {
	t.Helper()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.MkdirAll(frames, 0o755))
	for i := 0; i < n; i++ {
		writeTestPNG(t, filepath.Join(frames, strconv.Itoa(i)+".png"), 8, 8, color.NRGBA{uint8(i * 20), 0, 0, 255})
	}
	return frames
}

func TestIsVideo(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"a.mp4":        true,
		"a.MKV":        true,
		"dir/b.webm":   true,
		"a.gif":        false,
		"a.png":        false,
		"video":        false,
		"a.mp4.backup": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, IsVideo(path), path)
	}
}

func TestCountFramesGIF(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "aela.gif")
	writeTestGIF(t, path, 3, 16, 16)
	n, err := CountFrames(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountFramesPNG(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "still.png")
	writeTestPNG(t, path, 4, 4, color.White)
	n, err := CountFrames(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountFramesDirectory(t *testing.T) {
	t.Parallel()
	dir := writeTestFrames(t, t.TempDir(), 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	n, err := CountFrames(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCountFramesErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := CountFrames(filepath.Join(dir, "missing.gif"))
	assert.ErrorIs(t, err, ErrMedia)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = CountFrames(empty)
	assert.ErrorIs(t, err, ErrMedia)

	bogus := filepath.Join(dir, "bogus.png")
	require.NoError(t, os.WriteFile(bogus, []byte("not a png"), 0o644))
	_, err = CountFrames(bogus)
	assert.ErrorIs(t, err, ErrMedia)
}

func TestFrameFilesOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"10.png", "2.png", "1.png", "0.png"} {
		writeTestPNG(t, filepath.Join(dir, name), 2, 2, color.Black)
	}
	ff, err := frameFiles(dir)
	require.NoError(t, err)
	var got []string
	for _, f := range ff {
		got = append(got, filepath.Base(f))
	}
	assert.Equal(t, []string{"0.png", "1.png", "2.png", "10.png"}, got)

	writeTestPNG(t, filepath.Join(dir, "cover.png"), 2, 2, color.Black)
	ff, err = frameFiles(dir)
	require.NoError(t, err)
	got = got[:0]
	for _, f := range ff {
		got = append(got, filepath.Base(f))
	}
	assert.Equal(t, []string{"0.png", "1.png", "10.png", "2.png", "cover.png"}, got)
}

func TestExtractGIF(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "aela.gif")
	writeTestGIF(t, src, 3, 16, 16)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	it := testItem(3)
	it.Source = src
	it.Width, it.Height = 32, 24
	paths, err := extractor{opt: Options{Quiet: true}}.extract(context.Background(), it, out)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for i, p := range paths {
		assert.Equal(t, strconv.Itoa(i)+".png", filepath.Base(p))
		f, err := os.Open(p)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 32, cfg.Width)
		assert.Equal(t, 24, cfg.Height)
	}
}

func TestExtractDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := writeTestFrames(t, dir, 4)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	it := testItem(4)
	it.Source = src
	paths, err := extractor{opt: Options{Quiet: true}}.extract(context.Background(), it, out)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestExtractCancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	it := testItem(4)
	it.Source = writeTestFrames(t, dir, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extractor{opt: Options{Quiet: true}}.extract(ctx, it, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindMedia(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "alts")
	require.NoError(t, os.Mkdir(sub, 0o755))
	for _, name := range []string{"Aela_idle.gif", "aela.mp4", "alts/AELA_2.png", "bob.gif", "aela.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	ff, err := FindMedia(dir, "aela")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "Aela_idle.gif"),
		filepath.Join(dir, "aela.mp4"),
		filepath.Join(dir, "alts", "AELA_2.png"),
	}, ff)

	ff, err = FindMedia(filepath.Join(dir, "missing"), "aela")
	require.NoError(t, err)
	assert.Empty(t, ff)

	ff, err = FindMedia(dir, "  ")
	require.NoError(t, err)
	assert.Empty(t, ff)
}

func TestDecodeGIFComposites(t *testing.T) {
	t.Parallel()
	red, blue := color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255}
	pal := color.Palette{red, blue}
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	patch := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			patch.SetColorIndex(x, y, 1)
		}
	}
	g := &gif.GIF{
		Image:    []*image.Paletted{full, patch, full},
		Delay:    []int{10, 10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalBackground, gif.DisposalNone},
	}
	path := filepath.Join(t.TempDir(), "patch.gif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.EncodeAll(f, g))
	require.NoError(t, f.Close())

	frames, err := decodeFrames(path)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for _, frame := range frames {
		assert.Equal(t, image.Rect(0, 0, 4, 4), frame.Bounds())
	}
	rgba := func(c color.Color) color.RGBA {
		r, g, b, a := c.RGBA()
		return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	}
	assert.Equal(t, blue, rgba(frames[1].At(0, 0)))
	assert.Equal(t, red, rgba(frames[1].At(3, 3)), "second frame is drawn over the first")
	assert.Equal(t, red, rgba(frames[2].At(0, 0)))
}

func TestVideoFrames(t *testing.T) {
	t.Parallel()
	const probe = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "nb_frames": "900", "duration": "30.0"},
    {"index": 1, "codec_type": "video", "nb_frames": "150", "duration": "5.0"}
  ],
  "format": {"duration": "5.02"}
}`
	assert.Equal(t, 150, videoFrames(probe, 0))
	assert.Equal(t, 60, videoFrames(probe, 12))
	assert.Equal(t, 63, videoFrames(probe, 12.5))

	const noStreamInfo = `{"streams": [{"codec_type": "video"}], "format": {"duration": "2.5"}}`
	assert.Equal(t, 1, videoFrames(noStreamInfo, 0))
	assert.Equal(t, 25, videoFrames(noStreamInfo, 10))
	assert.Equal(t, 1, videoFrames(`{}`, 24))
}

func TestVideoStreamArgs(t *testing.T) {
	t.Parallel()
	it := testItem(0)
	it.Source = "aela.mp4"
	it.Width, it.Height = 256, 128

	args := strings.Join(videoStream(context.Background(), it, "out").GetArgs(), " ")
	assert.Contains(t, args, "-i aela.mp4")
	assert.Contains(t, args, "scale=256:128:flags=lanczos")
	assert.NotContains(t, args, "fps=")
	assert.Contains(t, args, filepath.Join("out", "%d.png"))
	assert.Contains(t, args, "-start_number 0")

	it.FPS = 12.5
	args = strings.Join(videoStream(context.Background(), it, "out").GetArgs(), " ")
	assert.Contains(t, args, "fps=12.5")
	assert.Less(t, strings.Index(args, "fps=12.5"), strings.Index(args, "scale=256:128"))
}

func TestCountItemFramesIgnoresFPSForImages(t *testing.T) {
	t.Parallel()
	it := testItem(0)
	it.Source = filepath.Join(t.TempDir(), "aela.gif")
	it.FPS = 30
	writeTestGIF(t, it.Source, 3, 8, 8)
	n, err := CountItemFrames(it)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
