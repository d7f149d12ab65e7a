// Package pack archives dropped mod folders and guards packing so that only
// one pack runs at a time.
package pack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"mmt/internal/fs"
)

const (
	archiveExt     = ".zip"
	defaultWorkers = 2
	outputDirPerms = 0o755
)

// Errors returned by [ZipPacker].
var (
	ErrNoSources       = errors.New("nothing to pack")
	ErrNotDirectory    = errors.New("source is not a directory")
	ErrDuplicateOutput = errors.New("two sources map to the same archive")
	ErrPackFailed      = errors.New("pack failed")
)

// Packer turns dropped source folders into distributable archives and
// returns the archive paths.
type Packer interface {
	Pack(ctx context.Context, sources []string) ([]string, error)
}

// ZipPacker writes <OutputDir>/<source base name>.zip for every source
// directory. Hidden files and folders are skipped, and so are the archives
// of the current batch and their temporary files when OutputDir lies inside
// a source.
type ZipPacker struct {
	FS        fs.FS
	OutputDir string
	// Workers bounds how many sources are packed at once.
	Workers int
	Logger  *slog.Logger
}

// Pack archives every source. Sources are independent: one failing does not
// stop the others, and all failures are reported together. Only archives
// that were fully written are returned, in source order.
func (p *ZipPacker) Pack(ctx context.Context, sources []string) ([]string, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targets := make([]string, len(sources))
	seen := make(map[string]string, len(sources))

	for i, src := range sources {
		target := filepath.Join(p.OutputDir, filepath.Base(filepath.Clean(src))+archiveExt)
		if prev, dup := seen[target]; dup {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateOutput, prev, src)
		}

		seen[target] = src
		targets[i] = target
	}

	if err := p.FS.MkdirAll(p.OutputDir, outputDirPerms); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
		done = make([]bool, len(sources))
	)

	var group errgroup.Group
	group.SetLimit(workers)

	for i := range sources {
		group.Go(func() error {
			err := p.packOne(ctx, sources[i], targets[i], targets)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("%s: %w", sources[i], err))

				return nil
			}

			done[i] = true

			logger.Debug("packed", "source", sources[i], "archive", targets[i])

			return nil
		})
	}

	_ = group.Wait()

	outputs := make([]string, 0, len(sources))

	for i, ok := range done {
		if ok {
			outputs = append(outputs, targets[i])
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return outputs, fmt.Errorf("%w: %w", ErrPackFailed, err)
	}

	return outputs, nil
}

func (p *ZipPacker) packOne(ctx context.Context, src, target string, batch []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := p.FS.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	pr, pw := io.Pipe()
	writeDone := make(chan error, 1)

	go func() {
		err := p.writeArchive(ctx, pw, src, batch)
		_ = pw.CloseWithError(err)
		writeDone <- err
	}()

	saveErr := p.FS.WriteFileAtomic(target, pr)
	// Unblocks the writer if the save stopped reading early.
	_ = pr.CloseWithError(io.ErrClosedPipe)

	writeErr := <-writeDone
	if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return writeErr
	}

	if saveErr != nil {
		return fmt.Errorf("writing %s: %w", target, saveErr)
	}

	return writeErr
}

func (p *ZipPacker) writeArchive(ctx context.Context, w io.Writer, root string, batch []string) error {
	zw := zip.NewWriter(w)

	if err := p.addDir(ctx, zw, root, "", batch); err != nil {
		_ = zw.Close()

		return err
	}

	return zw.Close()
}

func (p *ZipPacker) addDir(ctx context.Context, zw *zip.Writer, dir, prefix string, batch []string) error {
	entries, err := p.FS.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(dir, entry.Name())
		name := path.Join(prefix, entry.Name())

		if isBatchOutput(full, batch) {
			continue
		}

		if entry.IsDir() {
			if err := p.addDir(ctx, zw, full, name, batch); err != nil {
				return err
			}

			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		if err := p.addFile(zw, full, name); err != nil {
			return err
		}
	}

	return nil
}

func (p *ZipPacker) addFile(zw *zip.Writer, full, name string) error {
	file, err := p.FS.Open(full)
	if err != nil {
		return err
	}

	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, file); err != nil {
		return fmt.Errorf("adding %s: %w", full, err)
	}

	return nil
}

// isBatchOutput reports whether full is one of the batch's archives or a
// temporary file saved next to one. Atomic saves name those after the
// archive followed by random digits.
func isBatchOutput(full string, batch []string) bool {
	dir, base := filepath.Split(full)

	for _, target := range batch {
		targetDir, targetBase := filepath.Split(target)
		if dir != targetDir {
			continue
		}

		suffix, ok := strings.CutPrefix(base, targetBase)
		if ok && strings.Trim(suffix, "0123456789") == "" {
			return true
		}
	}

	return false
}

var _ Packer = (*ZipPacker)(nil)
