// internal/vault/compression.go
package vault

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressor wraps a reusable zstd encoder/decoder pair for blob
// compression. Archives are text and compress well; level 2 keeps
// store latency low.
type compressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCompressor() (*compressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &compressor{enc: enc, dec: dec}, nil
}

func (c *compressor) compress(content []byte) []byte {
	return c.enc.EncodeAll(content, nil)
}

func (c *compressor) decompress(content []byte) ([]byte, error) {
	return c.dec.DecodeAll(content, nil)
}

func (c *compressor) close() {
	c.enc.Close()
	c.dec.Close()
}
