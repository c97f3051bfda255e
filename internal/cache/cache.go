// Package cache implements Borealis's content-addressable asset cache
// (§4.2). Given a TestCase it returns Assets pointing at on-disk files,
// downloading on miss through a bounded number of concurrent requests and
// publishing the result atomically via a sibling-temp-dir-then-rename
// protocol — the same discipline build.Ctx.Extract/MakeEmpty use in the
// teacher repo to make "download into scratch space, then one os.Rename"
// crash-safe.
package cache

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/orcaman/writerseeker"
	"github.com/wasmerio/borealis"
	"github.com/wasmerio/borealis/internal/progress"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/xerrors"
)

// minParallelism is the floor on download_limiter permits (§4.2).
const minParallelism = 16

// Cache resolves TestCases to Assets under Root, deduplicating concurrent
// requests for the same destination and bounding concurrent downloads.
type Cache struct {
	Root string

	// Events receives two CacheStatusMessages per FetchAssets call, in the
	// Fetching-then-exactly-one-terminal-event sequence of §4.2. Sends are
	// dropped (never block) if Events is nil or full beyond its buffer;
	// callers that care should give it ample capacity.
	Events chan<- progress.CacheStatusMessage

	httpClient *http.Client
	limiter    *semaphore.Weighted
	group      singleflight.Group
}

// New constructs a Cache rooted at root. parallelism <= 0 selects
// runtime.GOMAXPROCS(0), floored at minParallelism (§4.2).
func New(root string, parallelism int, events chan<- progress.CacheStatusMessage) *Cache {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism < minParallelism {
		parallelism = minParallelism
	}
	return &Cache{
		Root:       root,
		Events:     events,
		httpClient: &http.Client{Transport: &http.Transport{DisableCompression: true}},
		limiter:    semaphore.NewWeighted(int64(parallelism)),
	}
}

// destDir returns the deterministic cache path for tc (invariant I1).
func (c *Cache) destDir(tc borealis.TestCase) string {
	return filepath.Join(c.Root, tc.Registry, tc.Namespace, tc.PackageName, tc.Version())
}

func (c *Cache) emit(msg progress.CacheStatusMessage) {
	if c.Events == nil {
		return
	}
	select {
	case c.Events <- msg:
	default:
	}
}

// FetchAssets resolves tc to Assets, downloading into the cache on miss.
// Safe for arbitrary concurrent use: identical destinations single-flight
// onto one download (§4.2 "SHOULD add a per-destination single-flight
// latch"), and the rename-based publish protocol is idempotent even without
// it.
func (c *Cache) FetchAssets(ctx context.Context, tc borealis.TestCase) (borealis.Assets, error) {
	c.emit(progress.CacheStatusMessage{Kind: progress.EventFetching, TestCase: tc})

	dest := c.destDir(tc)
	if assets, ok, err := cacheHit(dest, tc.PackageName); err != nil {
		return borealis.Assets{}, err
	} else if ok {
		c.emit(progress.CacheStatusMessage{Kind: progress.EventCacheHit, TestCase: tc})
		return assets, nil
	}

	start := time.Now()
	v, err, _ := c.group.Do(dest, func() (interface{}, error) {
		return c.download(ctx, tc, dest)
	})
	if err != nil {
		c.emit(progress.CacheStatusMessage{Kind: progress.EventDownloadFailed, TestCase: tc, Err: err})
		return borealis.Assets{}, err
	}
	assets := v.(borealis.Assets)
	c.emit(progress.CacheStatusMessage{
		Kind:            progress.EventCacheMiss,
		TestCase:        tc,
		Duration:        time.Since(start),
		BytesDownloaded: assets.TotalSize,
	})
	return assets, nil
}

func (c *Cache) download(ctx context.Context, tc borealis.TestCase, dest string) (borealis.Assets, error) {
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return borealis.Assets{}, xerrors.Errorf("acquiring download permit: %w", err)
	}
	defer c.limiter.Release(1)

	// Re-check under the permit: another FetchAssets may have published
	// dest while we were waiting for a slot or for the single-flight group.
	if assets, ok, err := cacheHit(dest, tc.PackageName); err != nil {
		return borealis.Assets{}, err
	} else if ok {
		return assets, nil
	}

	if err := os.MkdirAll(c.Root, 0o755); err != nil {
		return borealis.Assets{}, xerrors.Errorf("creating cache root: %w", err)
	}
	tmp, err := os.MkdirTemp(c.Root, "borealis-fetch-")
	if err != nil {
		return borealis.Assets{}, xerrors.Errorf("creating temp dir: %w", err)
	}
	publishedTmp := false
	defer func() {
		if !publishedTmp {
			os.RemoveAll(tmp)
		}
	}()

	tarballName := tc.PackageName + ".tar.gz"
	tarballPath := filepath.Join(tmp, tarballName)
	size, err := c.fetchInto(ctx, tarballPath, tc.PackageVersion.Distribution.DownloadURL)
	if err != nil {
		return borealis.Assets{}, xerrors.Errorf("downloading tarball: %w", err)
	}
	var total uint64 = size

	var webcName string
	if url := tc.PackageVersion.Distribution.PiritaDownloadURL; url != "" {
		webcName = tc.PackageName + ".webc"
		webcSize, err := c.fetchInto(ctx, filepath.Join(tmp, webcName), url)
		if err != nil {
			return borealis.Assets{}, xerrors.Errorf("downloading webc: %w", err)
		}
		total += webcSize
	}

	if err := publish(tmp, dest); err != nil {
		return borealis.Assets{}, xerrors.Errorf("publishing %s: %w", dest, err)
	}
	publishedTmp = true

	assets := borealis.Assets{
		Tarball:   filepath.Join(dest, tarballName),
		TotalSize: total,
	}
	if webcName != "" {
		assets.WebC = filepath.Join(dest, webcName)
	}
	return assets, nil
}

// fetchInto performs an HTTP GET of url, buffering the full body in memory
// (via writerseeker, the teacher's in-memory writer/seeker dependency)
// before writing it to fn in one operation — no streaming, no range
// requests, no retries (§4.2).
func (c *Cache) fetchInto(ctx context.Context, fn, url string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, xerrors.Errorf("%s: unexpected HTTP status %s", url, resp.Status)
	}

	buf := &writerseeker.WriterSeeker{}
	n, err := io.Copy(buf, resp.Body)
	if err != nil {
		return 0, xerrors.Errorf("reading body of %s: %w", url, err)
	}

	f, err := os.Create(fn)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := io.Copy(f, buf.Reader()); err != nil {
		return 0, xerrors.Errorf("writing %s: %w", fn, err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// publish implements the atomic publication protocol (§4.2 steps 4-7): if
// dest exists, remove it; ensure dest's parent exists; rename tmp to dest in
// one filesystem operation.
func publish(tmp, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return xerrors.Errorf("removing stale %s: %w", dest, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return xerrors.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return xerrors.Errorf("rename %s -> %s: %w", tmp, dest, err)
	}
	return nil
}

// cacheHit checks the cache-hit rule for a destination directory holding
// pkgName's artifacts.
func cacheHit(dest, pkgName string) (borealis.Assets, bool, error) {
	tarball := filepath.Join(dest, pkgName+".tar.gz")
	tfi, err := os.Stat(tarball)
	if err != nil {
		if os.IsNotExist(err) {
			return borealis.Assets{}, false, nil
		}
		return borealis.Assets{}, false, err
	}
	assets := borealis.Assets{Tarball: tarball, TotalSize: uint64(tfi.Size())}
	webc := filepath.Join(dest, pkgName+".webc")
	if wfi, err := os.Stat(webc); err == nil {
		assets.WebC = webc
		assets.TotalSize += uint64(wfi.Size())
	} else if !os.IsNotExist(err) {
		return borealis.Assets{}, false, err
	}
	return assets, true, nil
}
