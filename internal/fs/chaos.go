package fs

import (
	"io"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type ChaosConfig struct {
	ReadFailRate    float64 // Fail Open/ReadFile entirely
	PartialReadRate float64 // Return truncated data from ReadFile
	WriteFailRate   float64 // Fail WriteFileAtomic before anything is written
	ReadDirFailRate float64
	StatFailRate    float64 // Fail Stat/Exists
	LockFailRate    float64
}

// DefaultChaosConfig returns a config with reasonable fault rates for testing.
func DefaultChaosConfig() ChaosConfig {
	return ChaosConfig{
		ReadFailRate:    0.05,
		PartialReadRate: 0.05,
		WriteFailRate:   0.05,
		ReadDirFailRate: 0.05,
		StatFailRate:    0.02,
		LockFailRate:    0.05,
	}
}

// PathState is a sticky fault attached to a path.
type PathState int

const (
	// PathNormal means no persistent fault. Untracked paths are normal.
	PathNormal PathState = iota
	// PathIOError makes every operation on the path fail with EIO.
	PathIOError
	// PathReadOnly makes writes and locks on the path fail with EROFS.
	PathReadOnly
)

// ChaosMode controls how Chaos behaves.
type ChaosMode uint8

const (
	// ChaosModePassthrough behaves like the underlying FS. Sticky state is
	// kept but not consulted.
	ChaosModePassthrough ChaosMode = iota
	// ChaosModeInject applies fault rates and sticky path state.
	ChaosModeInject
	// ChaosModeStickyOnly applies sticky path state only.
	ChaosModeStickyOnly
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails    int64
	PartialReads int64
	WriteFails   int64
	ReadDirFails int64
	StatFails    int64
	LockFails    int64
}

// Chaos wraps an [FS] and injects failures for testing.
//
// Injected errors are *fs.PathError values wrapping a syscall.Errno, the same
// shape the OS returns, and [IsInjected] tells them apart from real ones.
// A failed WriteFileAtomic never touches the wrapped FS.
type Chaos struct {
	fs     FS
	config ChaosConfig
	mode   atomic.Uint32

	mu         sync.Mutex
	rng        *rand.Rand
	pathStates map[string]PathState

	readFails    atomic.Int64
	partialReads atomic.Int64
	writeFails   atomic.Int64
	readDirFails atomic.Int64
	statFails    atomic.Int64
	lockFails    atomic.Int64
}

// NewChaos wraps fsys. The seed makes injected faults reproducible.
// A new Chaos starts in [ChaosModePassthrough].
func NewChaos(fsys FS, seed int64, config ChaosConfig) *Chaos {
	return &Chaos{
		fs:         fsys,
		config:     config,
		rng:        rand.New(rand.NewSource(seed)),
		pathStates: make(map[string]PathState),
	}
}

// SetMode is safe to call concurrently with filesystem operations.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// SetPathState attaches a sticky fault to path. [PathNormal] clears it.
func (c *Chaos) SetPathState(path string, state PathState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state == PathNormal {
		delete(c.pathStates, path)

		return
	}

	c.pathStates[path] = state
}

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:    c.readFails.Load(),
		PartialReads: c.partialReads.Load(),
		WriteFails:   c.writeFails.Load(),
		ReadDirFails: c.readDirFails.Load(),
		StatFails:    c.statFails.Load(),
		LockFails:    c.lockFails.Load(),
	}
}

// TotalFaults returns the total number of injected faults.
func (c *Chaos) TotalFaults() int64 {
	s := c.Stats()

	return s.ReadFails + s.PartialReads + s.WriteFails + s.ReadDirFails + s.StatFails + s.LockFails
}

func (c *Chaos) should(rate float64) bool {
	if ChaosMode(c.mode.Load()) != ChaosModeInject {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Float64() < rate
}

func (c *Chaos) randIntn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Intn(n)
}

// sticky returns the errno of the path's sticky fault for op, or 0.
func (c *Chaos) sticky(op, path string) syscall.Errno {
	if ChaosMode(c.mode.Load()) == ChaosModePassthrough {
		return 0
	}

	c.mu.Lock()
	state := c.pathStates[path]
	c.mu.Unlock()

	switch state {
	case PathIOError:
		return syscall.EIO
	case PathReadOnly:
		if op == "write" || op == "mkdir" || op == "lock" {
			return syscall.EROFS
		}
	}

	return 0
}

// fault returns the error to inject for op on path, counting it, or nil.
func (c *Chaos) fault(op, path string, rate float64, counter *atomic.Int64, errno syscall.Errno) error {
	if sticky := c.sticky(op, path); sticky != 0 {
		counter.Add(1)

		return injectPathError(op, path, sticky)
	}

	if c.should(rate) {
		counter.Add(1)

		return injectPathError(op, path, errno)
	}

	return nil
}

func (c *Chaos) Open(path string) (File, error) {
	if err := c.fault("open", path, c.config.ReadFailRate, &c.readFails, syscall.EIO); err != nil {
		return nil, err
	}

	return c.fs.Open(path)
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if err := c.fault("read", path, c.config.ReadFailRate, &c.readFails, syscall.EIO); err != nil {
		return nil, err
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) > 1 && c.should(c.config.PartialReadRate) {
		c.partialReads.Add(1)

		return data[:c.randIntn(len(data)-1)+1], nil
	}

	return data, nil
}

func (c *Chaos) WriteFileAtomic(path string, r io.Reader) error {
	if err := c.fault("write", path, c.config.WriteFailRate, &c.writeFails, syscall.ENOSPC); err != nil {
		return err
	}

	return c.fs.WriteFileAtomic(path, r)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	if err := c.fault("readdir", path, c.config.ReadDirFailRate, &c.readDirFails, syscall.EIO); err != nil {
		return nil, err
	}

	return c.fs.ReadDir(path)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if err := c.fault("mkdir", path, 0, &c.writeFails, 0); err != nil {
		return err
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if err := c.fault("stat", path, c.config.StatFailRate, &c.statFails, syscall.EACCES); err != nil {
		return nil, err
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Exists(path string) (bool, error) {
	if err := c.fault("stat", path, c.config.StatFailRate, &c.statFails, syscall.EACCES); err != nil {
		return false, err
	}

	return c.fs.Exists(path)
}

func (c *Chaos) Lock(path string) (Locker, error) {
	if sticky := c.sticky("lock", path); sticky != 0 {
		c.lockFails.Add(1)

		return nil, injectPathError("lock", path, sticky)
	}

	if c.should(c.config.LockFailRate) {
		c.lockFails.Add(1)

		return nil, inject(ErrLockTimeout)
	}

	return c.fs.Lock(path)
}

var _ FS = (*Chaos)(nil)
