package frames2mod

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const hashSeparator = " --> "

// A HashCatalog maps character names to resource hashes, read from lines
// formatted as "Name --> hash".
type HashCatalog struct {
	names  []string
	hashes map[string]string
}

// LoadHashCatalog reads the catalog at path.
func LoadHashCatalog(path string) (*HashCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open %q failed: %w", path, err)
	}
	defer f.Close()
	c, err := ReadHashCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("ReadHashCatalog %q failed: %w", path, err)
	}
	return c, nil
}

// ReadHashCatalog parses r, skipping malformed lines with a warning.
func ReadHashCatalog(r io.Reader) (*HashCatalog, error) {
	c := &HashCatalog{hashes: make(map[string]string)}
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		name, hash, ok := strings.Cut(line, hashSeparator)
		name, hash = strings.TrimSpace(name), strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" || strings.Contains(hash, hashSeparator) {
			log.Printf("warning: skipping malformed line %d: %q", n, line)
			continue
		}
		key := strings.ToLower(name)
		if _, dup := c.hashes[key]; !dup {
			c.names = append(c.names, name)
		}
		c.hashes[key] = hash
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	sort.Strings(c.names)
	return c, nil
}

func (c *HashCatalog) Len() int {
	return len(c.names)
}

// Lookup returns the hash of name, ignoring case.
func (c *HashCatalog) Lookup(name string) (string, bool) {
	h, ok := c.hashes[strings.ToLower(strings.TrimSpace(name))]
	return h, ok
}

// Suggest returns up to limit names for query: names containing it first, then
// the closest by edit distance.
func (c *HashCatalog) Suggest(query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}
	type candidate struct {
		name     string
		contains bool
		dist     int
	}
	cc := make([]candidate, 0, len(c.names))
	for _, name := range c.names {
		lower := strings.ToLower(name)
		cand := candidate{name: name, contains: strings.Contains(lower, q), dist: levenshtein.ComputeDistance(q, lower)}
		if !cand.contains && cand.dist > distanceLimit(len(q)) {
			continue
		}
		cc = append(cc, cand)
	}
	sort.SliceStable(cc, func(i, j int) bool {
		if cc[i].contains != cc[j].contains {
			return cc[i].contains
		}
		return cc[i].dist < cc[j].dist
	})
	var out []string
	for i := 0; i < len(cc) && i < limit; i++ {
		out = append(out, cc[i].name)
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
