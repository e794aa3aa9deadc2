package frames2mod

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The clock advances the frame counter on 24 of every 60 present calls,
// roughly 24fps on a 60Hz host.
const (
	clockStep      = 24
	clockThreshold = 60
)

const (
	keyPause       = "p"
	keyStatic      = "o"
	keySwitchRight = "right"
	keySwitchLeft  = "left"

	thumbnailFilename = "static_thumbnail.dds"
)

var ErrEmptySet = errors.New("empty portrait set")

// GenerateConfig returns the ini script for set. It has no side effects.
func GenerateConfig(set PortraitSet) (string, error) {
	if len(set) == 0 {
		return "", ErrEmptySet
	}
	w := &iniWriter{}
	writeConstants(w, set)
	writeKeys(w, set)
	writePresent(w, set)
	writeTextureOverride(w, set)
	writeCommandList(w, set)
	writeResources(w, set)
	return w.String(), nil
}

type iniWriter struct {
	b strings.Builder
}

func (w *iniWriter) section(name string) {
	if w.b.Len() > 0 {
		w.b.WriteByte('\n')
	}
	w.b.WriteString("[" + name + "]\n")
}

func (w *iniWriter) line(depth int, format string, args ...any) {
	for i := 0; i < depth; i++ {
		w.b.WriteString("    ")
	}
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *iniWriter) String() string {
	return w.b.String()
}

// clockVars names the per-item animation state.
type clockVars struct {
	frame, active, fps, speed string
}

func clockVarsFor(i int, multi bool) clockVars {
	suffix := ""
	if multi {
		suffix = "_" + strconv.Itoa(i)
	}
	return clockVars{
		frame:  "$framevar" + suffix,
		active: "$active" + suffix,
		fps:    "$fpsvar" + suffix,
		speed:  "$speedtoggle" + suffix,
	}
}

func frameCount(it PortraitItem) int {
	if it.FrameCount < 1 {
		return 1
	}
	return it.FrameCount
}

func frameResource(i, frame int, multi bool) string {
	if multi {
		return fmt.Sprintf("ResourceFrame_%d_%d", i, frame)
	}
	return fmt.Sprintf("ResourceFrame%d", frame)
}

func thumbnailResource(i int, multi bool) string {
	if multi {
		return fmt.Sprintf("ResourceStaticThumbnail_%d", i)
	}
	return "ResourceStaticThumbnail"
}

// resourcePath returns the path of filename for item i, relative to the ini.
func resourcePath(set PortraitSet, i int, filename string) string {
	dir := set.ContainerName()
	if set.IsMulti() {
		if f := ItemFolder(i); f != "" {
			dir += "/" + f
		}
	}
	return dir + "/" + filename
}

// usesThumbnail returns true if item i binds its custom static image.
func usesThumbnail(set PortraitSet, i int) bool {
	it := set[i]
	if it.CustomStatic == "" {
		return false
	}
	if set.IsMulti() {
		return true
	}
	return it.StaticToggleEnabled()
}

// hasToggles returns true if pause and static key bindings are emitted.
func hasToggles(set PortraitSet) bool {
	return set.IsMulti() || set[0].StaticToggleEnabled()
}

func writeConstants(w *iniWriter, set PortraitSet) {
	w.section("Constants")
	multi := set.IsMulti()
	if multi {
		w.line(0, "global $portrait_idx = 0")
		w.line(0, "global $is_paused = 0")
		w.line(0, "global $show_static = 0")
	}
	for i := range set {
		v := clockVarsFor(i, multi)
		w.line(0, "global %s = 0", v.frame)
		w.line(0, "global %s", v.active)
		w.line(0, "global %s = 0", v.fps)
		w.line(0, "global %s", v.speed)
	}
	if !multi && hasToggles(set) {
		w.line(0, "global $is_paused = 0")
		w.line(0, "global $show_static = 0")
	}
}

func writeKeys(w *iniWriter, set PortraitSet) {
	if set.IsMulti() {
		idx := make([]string, len(set))
		rev := make([]string, len(set))
		for i := range set {
			idx[i] = strconv.Itoa(i)
			rev[len(set)-1-i] = strconv.Itoa(i)
		}
		writeCycleKey(w, "KeySwitchRight", keySwitchRight, "$portrait_idx", strings.Join(idx, ","), "")
		writeCycleKey(w, "KeySwitchLeft", keySwitchLeft, "$portrait_idx", strings.Join(rev, ","), "")
		writeCycleKey(w, "KeyPause", keyPause, "$is_paused", "0, 1", "")
		writeCycleKey(w, "KeyStatic", keyStatic, "$show_static", "0, 1", "")
		return
	}
	if !hasToggles(set) {
		return
	}
	cond := clockVarsFor(0, false).active + " == 1"
	writeCycleKey(w, "KeyPause", keyPause, "$is_paused", "0, 1", cond)
	writeCycleKey(w, "KeyStatic", keyStatic, "$show_static", "0, 1", cond)
}

func writeCycleKey(w *iniWriter, section, key, variable, values, condition string) {
	w.section(section)
	w.line(0, "key = %s", key)
	w.line(0, "type = cycle")
	w.line(0, "%s = %s", variable, values)
	if condition != "" {
		w.line(0, "condition = %s", condition)
	}
}

func writePresent(w *iniWriter, set PortraitSet) {
	w.section("Present")
	multi := set.IsMulti()
	toggles := hasToggles(set)
	for i, it := range set {
		v := clockVarsFor(i, multi)
		w.line(0, "post %s = 0", v.active)
		if !toggles {
			writeClock(w, 0, v, frameCount(it))
			continue
		}
		w.line(0, "if $is_paused == 0 && $show_static == 0")
		writeClock(w, 1, v, frameCount(it))
		w.line(0, "endif")
	}
}

// writeClock emits the accumulator gate and the looping frame counter.
// The accumulator wraps by subtraction, not modulo.
func writeClock(w *iniWriter, depth int, v clockVars, frames int) {
	last := frames - 1
	w.line(depth, "if %s == 1 && %s < %d", v.active, v.fps, clockThreshold)
	w.line(depth+1, "%s = %s + %d", v.fps, v.fps, clockStep)
	w.line(depth+1, "%s = 0", v.speed)
	w.line(depth, "endif")
	w.line(depth, "if %s >= %d", v.fps, clockThreshold)
	w.line(depth+1, "%s = %s - %d", v.fps, v.fps, clockThreshold)
	w.line(depth+1, "%s = 1", v.speed)
	w.line(depth, "endif")
	w.line(depth, "if %s < %d && %s == 1", v.frame, last, v.speed)
	w.line(depth+1, "%s = %s + 1", v.frame, v.frame)
	w.line(depth, "else if %s == %d", v.frame, last)
	w.line(depth+1, "%s = 0", v.frame)
	w.line(depth, "endif")
}

func writeTextureOverride(w *iniWriter, set PortraitSet) {
	w.section("TextureOverrideFrame")
	w.line(0, "hash = %s", set.Primary().Hash)
	w.line(0, "run = CommandlistFrame")
	if !set.IsMulti() {
		w.line(0, "%s = 1", clockVarsFor(0, false).active)
	}
}

func writeCommandList(w *iniWriter, set PortraitSet) {
	w.section("CommandlistFrame")
	if !set.IsMulti() {
		static := ""
		if hasToggles(set) {
			static = staticResource(set, 0)
		}
		writeFrameChain(w, 0, set, 0, static)
		return
	}
	for i := range set {
		kw := "else if"
		if i == 0 {
			kw = "if"
		}
		w.line(0, "%s $portrait_idx == %d", kw, i)
		w.line(1, "%s = 1", clockVarsFor(i, true).active)
		w.line(1, "if $show_static == 1")
		w.line(2, "this = %s", staticResource(set, i))
		w.line(1, "else")
		writeFrameChain(w, 2, set, i, "")
		w.line(1, "endif")
	}
	w.line(0, "endif")
}

// staticResource returns the resource bound in thumbnail mode for item i.
// A custom image wins over the frame index.
func staticResource(set PortraitSet, i int) string {
	if usesThumbnail(set, i) {
		return thumbnailResource(i, set.IsMulti())
	}
	frame := 0
	if set[i].StaticToggleEnabled() {
		frame = set[i].staticFrame()
	}
	return frameResource(i, frame, set.IsMulti())
}

// writeFrameChain emits the if/else if chain selecting a frame resource for
// item i. A non-empty static resource is bound first while $show_static is set.
func writeFrameChain(w *iniWriter, depth int, set PortraitSet, i int, static string) {
	multi := set.IsMulti()
	v := clockVarsFor(i, multi)
	kw := "if"
	if static != "" {
		w.line(depth, "if $show_static == 1")
		w.line(depth+1, "this = %s", static)
		kw = "else if"
	}
	for frame := 0; frame < frameCount(set[i]); frame++ {
		w.line(depth, "%s %s == %d", kw, v.frame, frame)
		w.line(depth+1, "this = %s", frameResource(i, frame, multi))
		kw = "else if"
	}
	w.line(depth, "endif")
}

func writeResources(w *iniWriter, set PortraitSet) {
	multi := set.IsMulti()
	for i, it := range set {
		for frame := 0; frame < frameCount(it); frame++ {
			w.section(frameResource(i, frame, multi))
			w.line(0, "filename = %s", resourcePath(set, i, strconv.Itoa(frame)+".dds"))
		}
		if usesThumbnail(set, i) {
			w.section(thumbnailResource(i, multi))
			w.line(0, "filename = %s", resourcePath(set, i, thumbnailFilename))
		}
	}
}
