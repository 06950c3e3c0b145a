// Package archive bundles image versions into a ZIP file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fpang/gourmet-lens/internal/imaging"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

// Method selects the per-entry compression.
type Method string

const (
	MethodStore   Method = "store"
	MethodDeflate Method = "deflate"
	MethodZstd    Method = "zstd"
)

// ParseMethod accepts store, deflate or zstd; empty means deflate.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodDeflate, nil
	case MethodStore, MethodDeflate, MethodZstd:
		return m, nil
	default:
		return "", fmt.Errorf("unknown archive method %q", s)
	}
}

func (m Method) zipMethod() uint16 {
	switch m {
	case MethodStore:
		return zip.Store
	case MethodZstd:
		return zipMethodZstd
	default:
		return zip.Deflate
	}
}

// register installs klauspost compressors on the ZIP writer. JPEG and PNG
// payloads barely shrink, so deflate runs at its fastest level while zstd
// keeps its default. Readers of zstd entries register their own
// decompressor.
func register(zw *zip.Writer) {
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})
	zw.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
}

// EntryName returns the file name of version i inside an archive, e.g. v0.jpg.
func EntryName(i int, h imaging.Handle) string {
	return fmt.Sprintf("v%d%s", i, h.Extension())
}

// WriteVersions writes one entry per version, named by EntryName.
// Zero handles are skipped.
func WriteVersions(w io.Writer, versions []imaging.Handle, method Method) error {
	zw := zip.NewWriter(w)
	register(zw)

	start := time.Now()
	var total int
	for i, h := range versions {
		if h.IsZero() {
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     EntryName(i, h),
			Method:   method.zipMethod(),
			Modified: start,
		})
		if err != nil {
			return fmt.Errorf("failed to create zip entry %d: %w", i, err)
		}
		if _, err := fw.Write(h.Data); err != nil {
			return fmt.Errorf("failed to write zip entry %d: %w", i, err)
		}
		total += len(h.Data)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}

	log.Debug().
		Int("versions", len(versions)).
		Int("bytes", total).
		Str("method", string(method)).
		Dur("duration", time.Since(start)).
		Msg("Archive written")
	return nil
}
