// Package tests locates, and downloads when missing, the third-party test
// ROMs used by the integration tests.
package tests

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

const (
	blarggURL  = `https://github.com/retrio/gb-test-roms/archive/refs/heads/master.zip`
	blarggZip  = "gb-test-roms-master"
	blarggDir  = "gb-test-roms"
	skipEnvVar = "DOTBOY_NO_DOWNLOAD"
)

func decompress(zipFile, dest, from, to string) (int, error) {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for _, f := range r.File {
		fname := strings.Replace(f.Name, from, to, 1)
		fpath := filepath.Join(dest, fname)
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return 0, fmt.Errorf("%s: illegal file path", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return 0, err
			}
			continue
		}
		if err := extract(f, fpath); err != nil {
			return 0, err
		}
	}
	return len(r.File), nil
}

func extract(f *zip.File, fpath string) error {
	if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func download(url, dest, from, to string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmpf, err := os.CreateTemp("", "dotboy-test-roms-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmpf.Name())
	defer tmpf.Close()

	if _, err := io.Copy(tmpf, resp.Body); err != nil {
		return err
	}

	if _, err := decompress(tmpf.Name(), dest, from, to); err != nil {
		return fmt.Errorf("failed to decompress test roms: %s", err)
	}
	return nil
}

var blargg struct {
	once sync.Once
	dir  string
	err  error
}

// BlarggPath returns the directory holding Blargg's Game Boy test ROMs,
// downloading them first if needed. The test is skipped when the ROMs are
// missing and downloads are disabled, or when running in short mode.
func BlarggPath(tb testing.TB) string {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping test ROMs in short mode")
	}

	blargg.once.Do(func() {
		_, b, _, _ := runtime.Caller(0)
		testsDir := filepath.Dir(b)
		blargg.dir = filepath.Join(testsDir, blarggDir)

		_, err := os.Stat(blargg.dir)
		if !errors.Is(err, fs.ErrNotExist) {
			blargg.err = err
			return
		}
		if os.Getenv(skipEnvVar) != "" {
			blargg.err = fs.ErrNotExist
			return
		}

		tb.Log(blarggDir, "directory not found, downloading it...")
		blargg.err = download(blarggURL, testsDir, blarggZip, blarggDir)
		if blargg.err == nil {
			tb.Log("test roms downloaded in", blargg.dir)
		}
	})

	if errors.Is(blargg.err, fs.ErrNotExist) {
		tb.Skipf("test roms not available (unset %s to download them)", skipEnvVar)
	}
	if blargg.err != nil {
		tb.Fatalf("test roms: %v", blargg.err)
	}
	return blargg.dir
}
