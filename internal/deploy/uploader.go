package deploy

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
)

// RemoteTarget is the subset of the transport session the uploader needs:
// probing and creating remote directories and copying single files.
type RemoteTarget interface {
	DirExists(ctx context.Context, remotePath string) (bool, error)
	Mkdir(ctx context.Context, remotePath string) error
	UploadFile(ctx context.Context, localPath, remotePath string) error
}

// FileStatus classifies the outcome for one tree entry.
type FileStatus string

const (
	// StatusUploaded means the file was copied to the remote host.
	StatusUploaded FileStatus = "uploaded"
	// StatusSkipped means the entry matched an exclusion rule.
	StatusSkipped FileStatus = "skipped"
	// StatusFailed means the upload was attempted and failed; the walk
	// continued with the remaining entries.
	StatusFailed FileStatus = "failed"
)

// FileResult records the outcome for one tree entry.
type FileResult struct {
	// RelPath is the entry's path relative to the upload root, with
	// forward-slash separators.
	RelPath string

	// RemotePath is the destination path on the remote host.
	RemotePath string

	// Status classifies the outcome.
	Status FileStatus

	// Size is the file size in bytes for uploaded files.
	Size int64

	// Err holds the upload failure for failed entries.
	Err error
}

// Report accumulates per-entry results for one upload run.
type Report struct {
	// Entries contains the result for each visited entry, in walk order.
	Entries []FileResult

	// Uploaded is the number of files copied.
	Uploaded int

	// Skipped is the number of entries excluded by rule. An excluded
	// directory counts once; its contents are never visited.
	Skipped int

	// Failed is the number of files whose upload failed.
	Failed int

	// DirsCreated is the number of remote directories created.
	DirsCreated int

	// TotalBytes is the total size of all uploaded files.
	TotalBytes int64
}

func (r *Report) add(res FileResult) {
	r.Entries = append(r.Entries, res)
	switch res.Status {
	case StatusUploaded:
		r.Uploaded++
		r.TotalBytes += res.Size
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Uploader walks a local directory tree depth-first and mirrors it onto the
// remote host, skipping entries that match its rule set. Transfers are
// strictly sequential.
type Uploader struct {
	// Remote is the open transport session to upload through.
	Remote RemoteTarget

	// Rules is the exclusion rule set. Nil means nothing is excluded.
	Rules RuleSet

	// Logf receives human-readable progress lines. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (u *Uploader) logf(format string, args ...any) {
	if u.Logf != nil {
		u.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Upload uploads the contents of localRoot into remoteRoot, recursively.
// Exclusion matching always uses the path relative to localRoot, never the
// current recursion level. Individual file failures are recorded in the
// report and do not abort the walk; directory probe faults and local
// filesystem faults do.
func (u *Uploader) Upload(ctx context.Context, localRoot, remoteRoot string) (*Report, error) {
	report := &Report{}
	if err := u.walk(ctx, localRoot, remoteRoot, localRoot, report); err != nil {
		return report, err
	}
	return report, nil
}

func (u *Uploader) walk(ctx context.Context, localDir, remoteDir, root string, report *Report) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upload cancelled: %w", err)
	}

	exists, err := u.Remote.DirExists(ctx, remoteDir)
	if err != nil {
		return err
	}
	if !exists {
		if err := u.Remote.Mkdir(ctx, remoteDir); err != nil {
			return err
		}
		report.DirsCreated++
		u.logf("created directory: %s", remoteDir)
	}

	// os.ReadDir returns entries sorted by name, so walk order and remote
	// mkdir order are deterministic.
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("failed to read local directory %s: %w", localDir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upload cancelled: %w", err)
		}

		localPath := filepath.Join(localDir, entry.Name())
		relPath, err := filepath.Rel(root, localPath)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", localPath, err)
		}
		relPath = filepath.ToSlash(relPath)
		remotePath := path.Join(remoteDir, entry.Name())

		if u.Rules.Match(relPath) {
			report.add(FileResult{RelPath: relPath, RemotePath: remotePath, Status: StatusSkipped})
			u.logf("skipping: %s", relPath)
			continue
		}

		if entry.IsDir() {
			if err := u.walk(ctx, localPath, remotePath, root, report); err != nil {
				return err
			}
			continue
		}

		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}

		u.logf("uploading: %s", relPath)
		if err := u.Remote.UploadFile(ctx, localPath, remotePath); err != nil {
			report.add(FileResult{RelPath: relPath, RemotePath: remotePath, Status: StatusFailed, Err: err})
			u.logf("error uploading %s: %v", relPath, err)
			continue
		}

		report.add(FileResult{RelPath: relPath, RemotePath: remotePath, Status: StatusUploaded, Size: size})
	}

	return nil
}
