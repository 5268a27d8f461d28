// Package cache persists resume caches for warm-started runs.
//
// Files are encoded with CBOR Core Deterministic Encoding, so the same
// run state always produces identical cache bytes.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/nested-inference/nested-inference/ns"
)

// cacheFileName is the resume-cache file inside a run directory.
const cacheFileName = "resume.cbor"

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cache: CBOR decoder initialization failed: " + err.Error())
	}
}

// Store manages the resume cache under one run directory.
type Store struct {
	dir string
}

// Open prepares a store rooted at dir according to the resume mode:
// overwrite removes any existing cache, resume/resume-similar keep it,
// and subfolder leaves existing runs untouched by allocating run1,
// run2, ... beneath dir.
func Open(dir string, mode ns.ResumeMode) (*Store, error) {
	switch mode {
	case ns.ResumeModeSubfolder:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache root %s: %w", dir, err)
		}
		for i := 1; ; i++ {
			sub := filepath.Join(dir, fmt.Sprintf("run%d", i))
			err := os.Mkdir(sub, 0o755)
			if err == nil {
				return &Store{dir: sub}, nil
			}
			if !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("creating run subfolder: %w", err)
			}
		}
	case ns.ResumeModeOverwrite, "":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
		}
		if err := os.Remove(filepath.Join(dir, cacheFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("clearing previous cache: %w", err)
		}
		return &Store{dir: dir}, nil
	case ns.ResumeModeResume, ns.ResumeModeSimilar:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
		}
		return &Store{dir: dir}, nil
	default:
		return nil, fmt.Errorf("unrecognized resume mode %q", mode)
	}
}

// Dir returns the directory this store reads and writes.
func (s *Store) Dir() string { return s.dir }

// Load reads the resume cache, or returns (nil, nil) when none exists.
func (s *Store) Load() (*ns.ResumeCache, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, cacheFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading resume cache: %w", err)
	}
	var c ns.ResumeCache
	if err := decMode.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding resume cache: %w", err)
	}
	return &c, nil
}

// Save writes the resume cache atomically (temp file + rename).
func (s *Store) Save(c *ns.ResumeCache) error {
	data, err := encMode.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding resume cache: %w", err)
	}
	tmp := filepath.Join(s.dir, cacheFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing resume cache: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, cacheFileName)); err != nil {
		return fmt.Errorf("committing resume cache: %w", err)
	}
	return nil
}

// Snapshot builds a ResumeCache from a finished (or in-flight) run: the
// dead-point sequence plus the current live points.
func Snapshot(space *ns.ParameterSpace, dead []ns.DeadPoint, live []ns.Point) *ns.ResumeCache {
	c := &ns.ResumeCache{
		Dim:        space.Dim,
		ParamNames: space.ParamNames,
		Points:     make([]ns.CachedPoint, 0, len(dead)+len(live)),
	}
	for _, d := range dead {
		c.Points = append(c.Points, ns.CachedPoint{U: d.U, Params: d.Params, Logl: d.Logl})
	}
	for _, p := range live {
		c.Points = append(c.Points, ns.CachedPoint{U: p.U, Params: p.Params, Logl: p.Logl})
	}
	return c
}
