package perfmgr

import (
	"os"
	"strconv"
	"sync"
)

// ProcessTag classifies a tgid by how many bytes the kernel's type-check
// node accepted from the write, mirroring
// original_source/power-libperfmgr/aidl/utils/TgidTypeChecker.cpp's
// switch on the write() return value.
type ProcessTag int

const (
	ProcessTagDefault ProcessTag = iota
	ProcessTagSystemUI
	ProcessTagChrome
)

const tgidTypeCheckPath = "/proc/vendor_sched/check_tgid_type"

// TgidTypeChecker opens the kernel's tgid-classification endpoint once and
// reuses it under its own mutex (spec.md §5 "The TGID-type checker opens
// its kernel endpoint once and reuses it under its own mutex"). Ported
// from TgidTypeChecker.{h,cpp}; a single process-wide instance is reached
// through ResolveTgidChecker(), never a bare global.
type TgidTypeChecker struct {
	mu   sync.Mutex
	file *os.File // nil if the node is unavailable; IsValid() reports false
}

var (
	tgidOnce    sync.Once
	tgidChecker *TgidTypeChecker
)

// ResolveTgidChecker returns the process-wide TgidTypeChecker, opening the
// kernel node on first call. The node's absence is not an error: IsValid()
// simply reports false and GetProcessTag degrades to ProcessTagDefault.
func ResolveTgidChecker() *TgidTypeChecker {
	tgidOnce.Do(func() {
		tgidChecker = newTgidTypeChecker(tgidTypeCheckPath)
	})
	return tgidChecker
}

func newTgidTypeChecker(path string) *TgidTypeChecker {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return &TgidTypeChecker{file: nil}
	}
	return &TgidTypeChecker{file: f}
}

// IsValid reports whether the kernel node was successfully opened.
func (c *TgidTypeChecker) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil
}

// GetProcessTag writes tgid's decimal string to the kernel node and
// classifies the process by how many bytes the write accepted.
func (c *TgidTypeChecker) GetProcessTag(tgid int32) ProcessTag {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return ProcessTagDefault
	}

	val := strconv.FormatInt(int64(tgid), 10)
	n, err := c.file.Write([]byte(val))
	if err != nil {
		return ProcessTagDefault
	}
	switch n {
	case 1:
		return ProcessTagSystemUI
	case 2:
		return ProcessTagChrome
	default:
		return ProcessTagDefault
	}
}

// Close releases the cached file handle; intended for test teardown since
// production callers hold ResolveTgidChecker for process lifetime.
func (c *TgidTypeChecker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

func (t ProcessTag) String() string {
	switch t {
	case ProcessTagSystemUI:
		return "system_ui"
	case ProcessTagChrome:
		return "chrome"
	default:
		return "default"
	}
}
