package harvest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/stackviolator/ntlm_extract/internal/capture"
	"golang.org/x/sync/errgroup"
)

var captureExtensions = map[string]bool{
	".pcap":   true,
	".pcapng": true,
	".cap":    true,
}

// FindCaptures returns every capture file below root, sorted by path.
func FindCaptures(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && captureExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanFile scans a single capture file with its own scan state.
func ScanFile(ctx context.Context, path string, opts Options, sink Sink) (Stats, error) {
	src, err := capture.OpenFile(path)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()

	log.Debugf("Scanning %s\n", path)
	return Run(ctx, path, src, opts, sink)
}

// ScanDir scans every capture below root using up to workers files at a
// time. A capture that cannot be opened or scanned does not stop the others;
// all such failures are returned joined.
func ScanDir(ctx context.Context, root string, workers int, opts Options, sink Sink) (Stats, error) {
	paths, err := FindCaptures(root)
	if err != nil {
		return Stats{}, err
	}
	if len(paths) == 0 {
		log.Noticef("No capture files found below %s\n", root)
		return Stats{}, nil
	}
	if workers <= 0 {
		workers = 1
	}

	var (
		mu    sync.Mutex
		total Stats
		errs  []error
		g     errgroup.Group
	)
	g.SetLimit(workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			st, err := ScanFile(ctx, path, opts, sink)
			mu.Lock()
			defer mu.Unlock()
			total.Add(st)
			if err != nil {
				log.Errorf("%v\n", err)
				errs = append(errs, err)
			}
			return nil
		})
	}
	g.Wait()
	return total, errors.Join(errs...)
}
