// Package datafile opens simulation inputs. Paths can be local or
// point to Google Storage (gs://bucket/object); gzip and zstd
// compressed content is decompressed transparently.
package datafile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("datafile")

// ChrPlaceholder is replaced by the chromosome number in path patterns.
const ChrPlaceholder = "@"

// Compression is the detected compression of a stream.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

var magic = map[Compression][]byte{
	CompressionGzip: {0x1f, 0x8b},
	CompressionZstd: {0x28, 0xb5, 0x2f, 0xfd},
}

// ExpandChr substitutes the chromosome into a path pattern.
func ExpandChr(pattern string, chr int) string {
	return strings.ReplaceAll(pattern, ChrPlaceholder, strconv.Itoa(chr))
}

// Join appends a file name to a directory. Unlike path.Join it keeps
// the "gs://" prefix intact.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// Opener opens local and Google Storage files. The storage client is
// created on the first gs:// path.
type Opener struct {
	Context context.Context

	mu     sync.Mutex
	client *storage.Client
}

// NewOpener creates an opener using ctx for storage requests.
func NewOpener(ctx context.Context) *Opener {
	return &Opener{Context: ctx}
}

// Close releases the storage client if one was created.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil {
		return nil
	}
	err := o.client.Close()
	o.client = nil
	return err
}

func (o *Opener) storageClient() (*storage.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		return o.client, nil
	}
	client, err := storage.NewClient(o.ctx())
	if err != nil {
		return nil, pfx.Err(err)
	}
	o.client = client
	return client, nil
}

func (o *Opener) ctx() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}

// OpenRaw opens path without decompression.
func (o *Opener) OpenRaw(path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, "gs://") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return nil, fmt.Errorf("cannot split google storage path %s into bucket and object", path)
	}
	client, err := o.storageClient()
	if err != nil {
		return nil, err
	}
	log.Debugf("Reading gs://%s/%s", pathParts[0], pathParts[1])
	r, err := client.Bucket(pathParts[0]).Object(pathParts[1]).NewReader(o.ctx())
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	return r, nil
}

// Open opens path and decompresses the content if needed.
func (o *Opener) Open(path string) (io.ReadCloser, error) {
	raw, err := o.OpenRaw(path)
	if err != nil {
		return nil, err
	}
	r, err := Decompress(raw)
	if err != nil {
		raw.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	return r, nil
}

// Detect returns compression of the buffered stream without consuming
// any bytes.
func Detect(br *bufio.Reader) (Compression, error) {
	head, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return CompressionNone, err
	}
	for _, c := range []Compression{CompressionGzip, CompressionZstd} {
		if bytes.HasPrefix(head, magic[c]) {
			return c, nil
		}
	}
	return CompressionNone, nil
}

// Decompress wraps rc with a decompressor chosen by the stream magic
// number. Closing the result closes rc.
func Decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	c, err := Detect(br)
	if err != nil {
		return nil, err
	}
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), rc}}, nil
	}
	return &readCloser{Reader: br, closers: []io.Closer{rc}}, nil
}

// readCloser closes a chain of readers in order.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() (err error) {
	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}

// defaultOpener serves the package level helpers.
var defaultOpener = NewOpener(context.Background())

// Open opens a local or gs:// file with the default opener.
func Open(path string) (io.ReadCloser, error) {
	return defaultOpener.Open(path)
}

// Close releases the storage client of the default opener.
func Close() error {
	return defaultOpener.Close()
}
