// Copyright 2024 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package depfetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	chttp "github.com/chainguard-dev/ccforge/pkg/http"
	"github.com/chainguard-dev/ccforge/pkg/manifest"
)

func httpGet(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", url, err)
	}
	return req, nil
}

func fetchArchive(ctx context.Context, dep manifest.ExternalDependency, dir string) error {
	client := chttp.NewClient(nil)

	if dep.SHA256 != "" {
		got, err := client.GetArtifactSHA256(ctx, dep.URL)
		if err != nil {
			return fmt.Errorf("hashing %q before download: %w", dep.URL, err)
		}
		if got != dep.SHA256 {
			return fmt.Errorf("%q: sha256 mismatch: want %s, got %s", dep.URL, dep.SHA256, got)
		}
	}

	tmp, err := os.CreateTemp("", "ccforge-archive-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %q: %w", dep.URL, err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := download(ctx, client, dep.URL, tmp); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding downloaded archive %q: %w", dep.URL, err)
	}

	return extract(tmp, dep.URL, dir)
}

func download(ctx context.Context, client *chttp.RLHTTPClient, url string, w io.Writer) error {
	req, err := httpGet(ctx, url)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("downloading %q: unexpected status %d", url, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %q: %w", url, err)
	}
	return nil
}

func extract(r io.ReaderAt, name, dir string) error {
	size, err := sizeOf(r)
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(name, ".zip"):
		zr, err := zip.NewReader(r, size)
		if err != nil {
			return fmt.Errorf("opening zip %q: %w", name, err)
		}
		return extractZip(zr, dir)
	default:
		sr := io.NewSectionReader(r, 0, size)
		tr, err := tarReaderFor(name, sr)
		if err != nil {
			return err
		}
		return extractTar(tr, dir)
	}
}

func sizeOf(r io.ReaderAt) (int64, error) {
	if f, ok := r.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return 0, fmt.Errorf("statting downloaded archive: %w", err)
		}
		return info.Size(), nil
	}
	return 0, fmt.Errorf("unsupported reader for archive extraction")
}

func tarReaderFor(name string, r io.Reader) (*tar.Reader, error) {
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip %q: %w", name, err)
		}
		return tar.NewReader(gz), nil
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening xz %q: %w", name, err)
		}
		return tar.NewReader(xr), nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd %q: %w", name, err)
		}
		return tar.NewReader(zr.IOReadCloser()), nil
	case strings.HasSuffix(name, ".tar"):
		return tar.NewReader(r), nil
	default:
		return nil, fmt.Errorf("unrecognized archive extension for %q", name)
	}
}

func extractTar(tr *tar.Reader, dir string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // bounded by upstream archive size
				f.Close()
				return fmt.Errorf("writing %q: %w", target, err)
			}
			f.Close()
		}
	}
}

func extractZip(zr *zip.Reader, dir string) error {
	for _, f := range zr.File {
		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("reading zip entry %q: %w", f.Name, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // bounded by upstream archive size
			out.Close()
			rc.Close()
			return fmt.Errorf("writing %q: %w", target, err)
		}
		out.Close()
		rc.Close()
	}
	return nil
}

// safeJoin joins dir and name, rejecting any entry that would escape dir
// via "../" path traversal (a hostile or corrupted archive).
func safeJoin(dir, name string) (string, error) {
	cleaned := filepath.Join(dir, name)
	if !strings.HasPrefix(cleaned, filepath.Clean(dir)+string(os.PathSeparator)) && cleaned != filepath.Clean(dir) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return cleaned, nil
}

func checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
