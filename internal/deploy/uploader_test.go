package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeRemote implements RemoteTarget in memory and records every call.
type fakeRemote struct {
	mu         sync.Mutex
	dirs       map[string]bool
	files      map[string][]byte
	probes     []string
	mkdirs     []string
	uploads    []string
	uploadErrs map[string]error
	probeErr   error
	mkdirErr   error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		dirs:       make(map[string]bool),
		files:      make(map[string][]byte),
		uploadErrs: make(map[string]error),
	}
}

func (f *fakeRemote) DirExists(_ context.Context, remotePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return false, f.probeErr
	}
	f.probes = append(f.probes, remotePath)
	return f.dirs[remotePath], nil
}

func (f *fakeRemote) Mkdir(_ context.Context, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mkdirErr != nil {
		return f.mkdirErr
	}
	f.mkdirs = append(f.mkdirs, remotePath)
	f.dirs[remotePath] = true
	return nil
}

func (f *fakeRemote) UploadFile(_ context.Context, localPath, remotePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, remotePath)
	if err, ok := f.uploadErrs[remotePath]; ok {
		return err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.files[remotePath] = content
	return nil
}

// writeTree creates files under root; keys use forward slashes.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

func TestUploadMirrorsTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"c.txt":        "top",
		"sub/file.txt": "nested",
		"sub/deep/x":   "deeper",
	})

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Logf: t.Logf}

	report, err := uploader.Upload(context.Background(), root, "/srv/app")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	expected := map[string]string{
		"/srv/app/c.txt":        "top",
		"/srv/app/sub/file.txt": "nested",
		"/srv/app/sub/deep/x":   "deeper",
	}
	for remotePath, content := range expected {
		got, ok := remote.files[remotePath]
		if !ok {
			t.Errorf("expected %s to be uploaded", remotePath)
			continue
		}
		if string(got) != content {
			t.Errorf("content of %s = %q, expected %q", remotePath, got, content)
		}
	}

	if report.Uploaded != 3 {
		t.Errorf("expected 3 uploaded, got %d", report.Uploaded)
	}
	if report.Failed != 0 || report.Skipped != 0 {
		t.Errorf("expected no failures or skips, got %d/%d", report.Failed, report.Skipped)
	}
	if report.DirsCreated != 3 {
		t.Errorf("expected 3 directories created, got %d", report.DirsCreated)
	}
	if report.TotalBytes != int64(len("top")+len("nested")+len("deeper")) {
		t.Errorf("unexpected TotalBytes %d", report.TotalBytes)
	}
}

func TestUploadRemotePathConstruction(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"sub/file.txt": "x"})

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Logf: t.Logf}

	if _, err := uploader.Upload(context.Background(), root, "/srv/app"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if _, ok := remote.files["/srv/app/sub/file.txt"]; !ok {
		t.Errorf("expected remote path /srv/app/sub/file.txt, got uploads %v", remote.uploads)
	}
	for _, p := range remote.uploads {
		if strings.Contains(p, `\`) {
			t.Errorf("remote path %q contains a backslash", p)
		}
	}
}

func TestUploadExcludedDirectorySkipsSubtree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/deep/file.txt": "dep",
		"src/main.go":                "code",
	})

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Rules: DefaultRules(), Logf: t.Logf}

	report, err := uploader.Upload(context.Background(), root, "/srv/app")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// The excluded subtree is never probed, created, or uploaded.
	for _, probe := range remote.probes {
		if strings.Contains(probe, "node_modules") {
			t.Errorf("excluded subtree was probed: %s", probe)
		}
	}
	for _, dir := range remote.mkdirs {
		if strings.Contains(dir, "node_modules") {
			t.Errorf("excluded subtree directory was created: %s", dir)
		}
	}
	for _, up := range remote.uploads {
		if strings.Contains(up, "node_modules") {
			t.Errorf("excluded subtree file was uploaded: %s", up)
		}
	}

	if report.Skipped != 1 {
		t.Errorf("expected the excluded directory to count once, got %d skips", report.Skipped)
	}
	if _, ok := remote.files["/srv/app/src/main.go"]; !ok {
		t.Error("expected src/main.go to be uploaded")
	}
}

func TestUploadSuffixRule(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/b.txt": "keep",
		"c.pyc":   "drop",
	})

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Rules: RuleSet{"*.pyc"}, Logf: t.Logf}

	report, err := uploader.Upload(context.Background(), root, "/srv/app")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if _, ok := remote.files["/srv/app/a/b.txt"]; !ok {
		t.Error("expected a/b.txt to be uploaded")
	}
	if _, ok := remote.files["/srv/app/c.pyc"]; ok {
		t.Error("expected c.pyc to be skipped")
	}
	if report.Uploaded != 1 || report.Skipped != 1 {
		t.Errorf("expected 1 uploaded and 1 skipped, got %d/%d", report.Uploaded, report.Skipped)
	}
}

func TestUploadExistingDirectoryNotRecreated(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	remote := newFakeRemote()
	remote.dirs["/srv/app"] = true

	uploader := &Uploader{Remote: remote, Logf: t.Logf}
	if _, err := uploader.Upload(context.Background(), root, "/srv/app"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if len(remote.mkdirs) != 0 {
		t.Errorf("expected no mkdir calls for an existing directory, got %v", remote.mkdirs)
	}
}

func TestUploadContinuesAfterFileFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"x.txt": "fails",
		"y.txt": "succeeds",
	})

	remote := newFakeRemote()
	remote.uploadErrs["/srv/app/x.txt"] = errors.New("connection reset by peer")

	uploader := &Uploader{Remote: remote, Logf: t.Logf}
	report, err := uploader.Upload(context.Background(), root, "/srv/app")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Entries are visited in name order, so x.txt failed before y.txt.
	if _, ok := remote.files["/srv/app/y.txt"]; !ok {
		t.Error("expected sibling y.txt to still be uploaded")
	}
	if report.Failed != 1 || report.Uploaded != 1 {
		t.Errorf("expected 1 failed and 1 uploaded, got %d/%d", report.Failed, report.Uploaded)
	}

	var failed *FileResult
	for i := range report.Entries {
		if report.Entries[i].Status == StatusFailed {
			failed = &report.Entries[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a failed entry in the report")
	}
	if failed.RelPath != "x.txt" || failed.Err == nil {
		t.Errorf("unexpected failed entry: %+v", failed)
	}
}

func TestUploadProbeFaultAborts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	remote := newFakeRemote()
	remote.probeErr = fmt.Errorf("failed to stat remote path: permission denied")

	uploader := &Uploader{Remote: remote, Logf: t.Logf}
	if _, err := uploader.Upload(context.Background(), root, "/srv/app"); err == nil {
		t.Fatal("expected a probe fault to abort the upload")
	}
}

func TestUploadCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Logf: t.Logf}
	if _, err := uploader.Upload(ctx, root, "/srv/app"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUploadWalkOrderIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt": "2",
		"a.txt": "1",
		"c.txt": "3",
	})

	remote := newFakeRemote()
	uploader := &Uploader{Remote: remote, Logf: t.Logf}
	if _, err := uploader.Upload(context.Background(), root, "/srv/app"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	expected := []string{"/srv/app/a.txt", "/srv/app/b.txt", "/srv/app/c.txt"}
	if len(remote.uploads) != len(expected) {
		t.Fatalf("expected %d uploads, got %v", len(expected), remote.uploads)
	}
	for i, p := range expected {
		if remote.uploads[i] != p {
			t.Errorf("upload %d = %s, expected %s", i, remote.uploads[i], p)
		}
	}
}
