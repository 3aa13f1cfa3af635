package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec is a payload compression format
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecXZ   Codec = "xz"
	CodecZstd Codec = "zstd"
)

// ParseCodec maps a codec name or file extension to a Codec
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return CodecNone, nil
	case "gz", ".gz", "gzip":
		return CodecGzip, nil
	case "xz", ".xz":
		return CodecXZ, nil
	case "zst", ".zst", "zstd":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("unknown compression %q", s)
	}
}

// Extension returns the file extension used for the codec
func (c Codec) Extension() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecXZ:
		return ".xz"
	case CodecZstd:
		return ".zst"
	default:
		return ""
	}
}

// Compress encodes data with the codec
func (c Codec) Compress(data []byte) ([]byte, error) {
	switch c {
	case CodecGzip:
		return GzipCompress(data)
	case CodecXZ:
		return XZCompress(data)
	case CodecZstd:
		return ZstdCompress(data)
	default:
		return data, nil
	}
}

// Decompress decodes data written by Compress
func (c Codec) Decompress(data []byte) ([]byte, error) {
	switch c {
	case CodecGzip:
		return GzipDecompress(data)
	case CodecXZ:
		return XZDecompress(data)
	case CodecZstd:
		return ZstdDecompress(data)
	default:
		return data, nil
	}
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// XZCompress compresses data using xz
func XZCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// XZDecompress decompresses xz data
func XZDecompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return io.ReadAll(r)
}

// ZstdCompress compresses data using zstd
func ZstdCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ZstdDecompress decompresses zstd data
func ZstdDecompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
