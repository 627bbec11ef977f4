package muxhandlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidCompressionLevel is returned when CompressionConfig.Level is
// outside [flate.HuffmanOnly, flate.BestCompression].
var ErrInvalidCompressionLevel = errors.New("compression: invalid compression level")

// CompressionConfig configures CompressionMiddleware.
type CompressionConfig struct {
	// Level applies to gzip and deflate; zero selects the default level.
	Level int

	// MinLength is the body size below which responses are sent as is.
	MinLength int
}

// encoder is implemented by the gzip, flate and zstd writers.
type encoder interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

// encodings in preference order for equal client quality.
var encodings = []string{"zstd", "gzip", "deflate"}

// skippedContentTypes are already compressed.
var skippedContentTypes = []string{
	"image/", "video/", "audio/",
	"application/zip", "application/gzip", "application/x-gzip",
	"application/x-bzip2", "application/x-xz", "application/zstd",
	"application/x-7z-compressed", "application/x-rar-compressed",
}

// CompressionMiddleware compresses response bodies with zstd, gzip or
// deflate, negotiated from Accept-Encoding. Responses that already carry a
// Content-Encoding, have a compressed media type or stay below MinLength
// are passed through. Writers are pooled per encoding.
func CompressionMiddleware(cfg CompressionConfig) (mux.MiddlewareFunc, error) {
	level := cfg.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	pools := map[string]*sync.Pool{
		"gzip": {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		}},
		"deflate": {New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)
			return w
		}},
		"zstd": {New: func() any {
			w, _ := zstd.NewWriter(io.Discard, zstd.WithEncoderConcurrency(1))
			return w
		}},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{
				ResponseWriter: w,
				pool:           pools[encoding],
				encoding:       encoding,
				minLength:      cfg.MinLength,
				status:         http.StatusOK,
			}
			defer cw.close()

			next.ServeHTTP(cw, r)
		})
	}, nil
}

// CompressionFactory reads "compress:<level>[,<min length>]" route
// parameters over base.
func CompressionFactory(base CompressionConfig) mux.MiddlewareFactory {
	return func(params []string) (mux.MiddlewareFunc, error) {
		cfg := base
		for i, p := range params {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("compression: invalid parameter %q", p)
			}
			switch i {
			case 0:
				cfg.Level = n
			case 1:
				cfg.MinLength = n
			}
		}
		return CompressionMiddleware(cfg)
	}
}

// negotiateEncoding picks the accepted encoding with the highest quality,
// "" when none is acceptable.
func negotiateEncoding(header string) string {
	quality := make(map[string]float64, len(encodings))
	wildcard := -1.0

	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))

		q := 1.0
		if key, value, ok := strings.Cut(strings.TrimSpace(params), "="); ok && strings.TrimSpace(key) == "q" {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				q = parsed
			} else {
				q = 0
			}
		}

		if name == "*" {
			wildcard = q
		} else if name != "" {
			quality[name] = q
		}
	}

	best, bestQ := "", 0.0
	for _, enc := range encodings {
		q, ok := quality[enc]
		if !ok {
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

// compressWriter buffers the first MinLength bytes to decide whether the
// response is compressed.
type compressWriter struct {
	http.ResponseWriter
	pool      *sync.Pool
	encoding  string
	minLength int

	enc         encoder
	buf         []byte
	status      int
	wroteHeader bool
	decided     bool
}

func (cw *compressWriter) WriteHeader(status int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.status = status
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	cw.wroteHeader = true

	if !cw.decided {
		cw.buf = append(cw.buf, b...)
		if len(cw.buf) < cw.minLength || len(cw.buf) == 0 {
			return len(b), nil
		}
		if err := cw.decide(true); err != nil {
			return 0, err
		}
		return len(b), nil
	}

	if cw.enc != nil {
		return cw.enc.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// decide sends the header and the buffered bytes, compressed when allowed
// and large enough.
func (cw *compressWriter) decide(large bool) error {
	cw.decided = true

	h := cw.Header()
	if large && cw.compressible() {
		h.Set("Content-Encoding", cw.encoding)
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")

		cw.enc = cw.pool.Get().(encoder)
		cw.enc.Reset(cw.ResponseWriter)
	}

	cw.ResponseWriter.WriteHeader(cw.status)
	buf := cw.buf
	cw.buf = nil
	if len(buf) == 0 {
		return nil
	}

	var err error
	if cw.enc != nil {
		_, err = cw.enc.Write(buf)
	} else {
		_, err = cw.ResponseWriter.Write(buf)
	}
	return err
}

func (cw *compressWriter) compressible() bool {
	h := cw.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if cw.status < 200 || cw.status == http.StatusNoContent || cw.status == http.StatusNotModified {
		return false
	}

	ct := strings.ToLower(h.Get("Content-Type"))
	for _, prefix := range skippedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return false
		}
	}
	return true
}

func (cw *compressWriter) close() {
	if !cw.decided {
		if !cw.wroteHeader {
			return
		}
		cw.decide(len(cw.buf) > 0 && len(cw.buf) >= cw.minLength)
	}

	if cw.enc != nil {
		cw.enc.Close()
		cw.pool.Put(cw.enc)
		cw.enc = nil
	}
}

// Flush implements http.Flusher.
func (cw *compressWriter) Flush() {
	if !cw.decided && len(cw.buf) > 0 {
		cw.decide(true)
	}
	if cw.enc != nil {
		cw.enc.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility.
func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
