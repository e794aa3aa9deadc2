package frames2mod

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// A Package describes a written mod folder:
//
//	{Root}/
//	    {name}.ini
//	    instructions.txt
//	    {hash} - {name}/
//	        0.dds ... N.dds
//	        static_thumbnail.dds
//	        Item2/ ... ItemN/
type Package struct {
	Root             string
	IniPath          string
	InstructionsPath string
	ContainerDir     string
	// Frames holds the number of converted frames per item.
	Frames []int
	Assets int
	Bytes  int64
	Config string
}

func newPackage(root string, set PortraitSet) *Package {
	name := set.Primary().Name
	dir := filepath.Join(root, name)
	return &Package{
		Root:         dir,
		IniPath:      filepath.Join(dir, name+".ini"),
		ContainerDir: filepath.Join(dir, set.ContainerName()),
		Frames:       make([]int, len(set)),
	}
}

// ItemDir returns the output folder of item i inside base.
func ItemDir(base string, set PortraitSet, i int) string {
	if !set.IsMulti() {
		return base
	}
	return filepath.Join(base, ItemFolder(i))
}

func (p *Package) Summary() string {
	total := 0
	for _, n := range p.Frames {
		total += n
	}
	return fmt.Sprintf("wrote %d asset(s) for %d portrait(s), %d frame(s), %s to %q, config %q",
		p.Assets, len(p.Frames), total, humanize.Bytes(uint64(p.Bytes)), p.ContainerDir, p.IniPath)
}

// stat counts the dds assets below ContainerDir.
func (p *Package) stat() error {
	p.Assets, p.Bytes = 0, 0
	return filepath.WalkDir(p.ContainerDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dds") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		p.Assets++
		p.Bytes += fi.Size()
		return nil
	})
}

// mkdirAllOwned creates path like os.MkdirAll and returns the top-most
// directory it created, or "" if path already existed.
func mkdirAllOwned(path string) (created string, err error) {
	for p := path; ; {
		_, err := os.Stat(p)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		created = p
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	if err = os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return created, nil
}

// owned tracks files and directories created by one assembly. Only those are
// ever removed on failure.
type owned struct {
	paths   []string
	verbose bool
}

func (o *owned) add(path string) {
	if path != "" {
		o.paths = append(o.paths, path)
	}
}

// remove deletes everything tracked, newest first.
func (o *owned) remove() {
	for i := len(o.paths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(o.paths[i]); err != nil {
			log.Printf("warning: cleanup of %q failed: %v", o.paths[i], err)
			continue
		}
		if o.verbose {
			log.Printf("removed %q", o.paths[i])
		}
	}
	o.paths = nil
}
