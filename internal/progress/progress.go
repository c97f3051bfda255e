// Package progress implements Borealis's ProgressMonitor (§4.5): a thin
// fan-in from cache status events to a pluggable Sink, plus a terminal
// status-line renderer modeled on the teacher's batch.go scheduler, which
// repaints a fixed block of status lines in place using isatty to detect
// whether stdout supports it.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/wasmerio/borealis"
)

// EventKind discriminates CacheStatusMessage (§4.2 "Emitted progress
// events").
type EventKind int

const (
	EventFetching EventKind = iota
	EventCacheHit
	EventCacheMiss
	EventDownloadFailed
)

// CacheStatusMessage is one observability event raised by the cache. Per
// test case the sequence is Fetching, then exactly one of CacheHit,
// CacheMiss or DownloadFailed (§4.2, §4.5).
type CacheStatusMessage struct {
	Kind            EventKind
	TestCase        borealis.TestCase
	Duration        time.Duration
	BytesDownloaded uint64
	Err             error
}

// Sink receives classified cache events. NoopSink, the default that New
// substitutes for a nil sink, ignores everything.
type Sink interface {
	Downloading(tc borealis.TestCase)
	CacheHit(tc borealis.TestCase)
	CacheMiss(tc borealis.TestCase, d time.Duration, bytes uint64)
	DownloadingAssetsFailed(tc borealis.TestCase, err error)
}

// NoopSink is the default Sink: it does nothing.
type NoopSink struct{}

func (NoopSink) Downloading(borealis.TestCase)                      {}
func (NoopSink) CacheHit(borealis.TestCase)                         {}
func (NoopSink) CacheMiss(borealis.TestCase, time.Duration, uint64) {}
func (NoopSink) DownloadingAssetsFailed(borealis.TestCase, error)   {}

// Monitor forwards CacheStatusMessages to a Sink; the caller owns the loop
// that feeds it. No ordering is guaranteed across messages for distinct test
// cases (§4.5).
type Monitor struct {
	Sink Sink
}

// New constructs a Monitor. A nil sink defaults to NoopSink{}.
func New(sink Sink) *Monitor {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Monitor{Sink: sink}
}

// Dispatch forwards one message to the Sink hook matching its Kind.
func (m *Monitor) Dispatch(msg CacheStatusMessage) {
	switch msg.Kind {
	case EventFetching:
		m.Sink.Downloading(msg.TestCase)
	case EventCacheHit:
		m.Sink.CacheHit(msg.TestCase)
	case EventCacheMiss:
		m.Sink.CacheMiss(msg.TestCase, msg.Duration, msg.BytesDownloaded)
	case EventDownloadFailed:
		m.Sink.DownloadingAssetsFailed(msg.TestCase, msg.Err)
	}
}

// TerminalSink prints one repainted status line per in-flight test case,
// the same "overwrite in place with \033[NA" trick batch.go's scheduler
// uses for its worker status block. Writes are serialized; when w is not a
// terminal, in-progress lines are skipped and only final lines are printed.
type TerminalSink struct {
	w        io.Writer
	isTerm   bool
	mu       sync.Mutex
	inFlight map[string]string
	order    []string
}

// NewTerminalSink wraps w (typically os.Stdout). fd is the underlying file
// descriptor used for the isatty check; pass isTerminalFd=false to force
// non-terminal mode (useful in tests).
func NewTerminalSink(w io.Writer, fd uintptr, isTerminalFd bool) *TerminalSink {
	isTerm := isTerminalFd && isatty.IsTerminal(fd)
	return &TerminalSink{w: w, isTerm: isTerm, inFlight: make(map[string]string)}
}

func (s *TerminalSink) Downloading(tc borealis.TestCase) {
	s.set(tc, fmt.Sprintf("fetching   %s@%s", tc.DisplayName(), tc.Version()))
}

func (s *TerminalSink) CacheHit(tc borealis.TestCase) {
	s.clear(tc, fmt.Sprintf("cache hit  %s@%s", tc.DisplayName(), tc.Version()))
}

func (s *TerminalSink) CacheMiss(tc borealis.TestCase, d time.Duration, bytes uint64) {
	s.clear(tc, fmt.Sprintf("downloaded %s@%s (%d bytes in %v)", tc.DisplayName(), tc.Version(), bytes, d))
}

func (s *TerminalSink) DownloadingAssetsFailed(tc borealis.TestCase, err error) {
	s.clear(tc, fmt.Sprintf("failed     %s@%s: %v", tc.DisplayName(), tc.Version(), err))
}

func (s *TerminalSink) set(tc borealis.TestCase, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tc.DisplayName() + "@" + tc.Version()
	if _, ok := s.inFlight[key]; !ok {
		s.order = append(s.order, key)
	}
	s.inFlight[key] = line
	s.repaintLocked()
}

func (s *TerminalSink) clear(tc borealis.TestCase, finalLine string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isTerm {
		fmt.Fprintln(s.w, finalLine)
		return
	}
	key := tc.DisplayName() + "@" + tc.Version()
	delete(s.inFlight, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	fmt.Fprintln(s.w, finalLine)
}

// repaintLocked reprints every in-flight status line, then moves the cursor
// back up so the next repaint overwrites it in place.
func (s *TerminalSink) repaintLocked() {
	if !s.isTerm {
		return
	}
	var maxLen int
	lines := make([]string, 0, len(s.order))
	for _, k := range s.order {
		line := s.inFlight[k]
		if len(line) > maxLen {
			maxLen = len(line)
		}
		lines = append(lines, line)
	}
	for i, line := range lines {
		if pad := maxLen - len(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		fmt.Fprintln(s.w, line)
		lines[i] = line
	}
	if len(lines) > 0 {
		fmt.Fprintf(s.w, "\033[%dA", len(lines))
	}
}
