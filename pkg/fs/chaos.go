package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosOp names a filesystem operation [Chaos] can fail.
type ChaosOp string

const (
	OpOpen      ChaosOp = "open"
	OpReadFile  ChaosOp = "readfile"
	OpWrite     ChaosOp = "write"
	OpReadDir   ChaosOp = "readdir"
	OpMkdirAll  ChaosOp = "mkdirall"
	OpStat      ChaosOp = "stat"
	OpRemove    ChaosOp = "remove"
	OpOpenFile  ChaosOp = "openfile"

	// OpAny matches every operation.
	OpAny ChaosOp = "*"
)

const defaultErrno = syscall.EIO

// ChaosRule makes [Chaos] fail an operation.
//
// A rule matches when Op equals the operation (or is [OpAny]) and the
// path ends with PathSuffix (empty matches every path). Errno defaults to
// EIO. Times limits how many calls fail; zero means every matching call.
type ChaosRule struct {
	Op         ChaosOp
	PathSuffix string
	Errno      syscall.Errno
	Times      int
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive applies the configured rules. This is the default.
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// chaosError marks an error as intentionally injected by [Chaos].
// It wraps the underlying error so errors.Is/As continue to work.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and fails chosen operations for testing.
//
// Unlike a probabilistic injector, Chaos is driven by explicit rules, so a
// test states exactly which call fails and with which errno. Injected errors
// are [*os.PathError] values carrying a real [syscall.Errno], wrapped so
// [IsChaosErr] can tell them apart from real failures. Chaos never injects
// ENOENT; not-exist results always come from the wrapped FS.
type Chaos struct {
	fs   FS
	mode atomic.Uint32

	mu    sync.Mutex
	rules []*chaosRuleState

	injected atomic.Int64
}

type chaosRuleState struct {
	rule ChaosRule
	hits int
}

// NewChaos wraps fsys with the given rules.
func NewChaos(fsys FS, rules ...ChaosRule) *Chaos {
	c := &Chaos{fs: fsys}
	for _, r := range rules {
		c.AddRule(r)
	}

	return c
}

// AddRule appends a rule. Rules are evaluated in insertion order.
func (c *Chaos) AddRule(r ChaosRule) {
	if r.Errno == 0 {
		r.Errno = defaultErrno
	}

	c.mu.Lock()
	c.rules = append(c.rules, &chaosRuleState{rule: r})
	c.mu.Unlock()
}

// Reset drops every rule.
func (c *Chaos) Reset() {
	c.mu.Lock()
	c.rules = nil
	c.mu.Unlock()
}

// SetMode switches between applying rules and passthrough.
func (c *Chaos) SetMode(m ChaosMode) {
	c.mode.Store(uint32(m))
}

// Injected returns how many faults have been injected so far.
func (c *Chaos) Injected() int64 {
	return c.injected.Load()
}

func (c *Chaos) fail(op ChaosOp, path string) error {
	if ChaosMode(c.mode.Load()) == ChaosModeNoOp {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.rules {
		r := st.rule
		if r.Op != OpAny && r.Op != op {
			continue
		}

		if !strings.HasSuffix(path, r.PathSuffix) {
			continue
		}

		if r.Times > 0 && st.hits >= r.Times {
			continue
		}

		st.hits++
		c.injected.Add(1)

		return &chaosError{Err: &os.PathError{Op: string(op), Path: path, Err: r.Errno}}
	}

	return nil
}

func (c *Chaos) Open(path string) (File, error) {
	if err := c.fail(OpOpen, path); err != nil {
		return nil, err
	}

	return c.fs.Open(path)
}

func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := c.fail(OpOpenFile, path); err != nil {
		return nil, err
	}

	return c.fs.OpenFile(path, flag, perm)
}

func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if err := c.fail(OpReadFile, path); err != nil {
		return nil, err
	}

	return c.fs.ReadFile(path)
}

// WriteFileAtomic fails before touching the target, so an injected write
// failure leaves the previous content in place.
func (c *Chaos) WriteFileAtomic(path string, data []byte) error {
	if err := c.fail(OpWrite, path); err != nil {
		return err
	}

	return c.fs.WriteFileAtomic(path, data)
}

func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	if err := c.fail(OpReadDir, path); err != nil {
		return nil, err
	}

	return c.fs.ReadDir(path)
}

func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if err := c.fail(OpMkdirAll, path); err != nil {
		return err
	}

	return c.fs.MkdirAll(path, perm)
}

func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	if err := c.fail(OpStat, path); err != nil {
		return nil, err
	}

	return c.fs.Stat(path)
}

func (c *Chaos) Remove(path string) error {
	if err := c.fail(OpRemove, path); err != nil {
		return err
	}

	return c.fs.Remove(path)
}

var _ FS = (*Chaos)(nil)
