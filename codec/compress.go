package codec

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block-compression algorithm for raw sensor
// payloads (image, depth, scan buffers).
type Compression uint8

const (
	// CompressionNone stores payloads uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 is fast with a modest ratio, suited to payloads that
	// are re-read often.
	CompressionLZ4 Compression = 1
	// CompressionZSTD has the better ratio, suited to cold archived payloads.
	CompressionZSTD Compression = 2
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block header: [UncompressedSize uint32][CompressedSize uint32][Data...]
// CompressedSize == 0 means the data is stored raw.
const blockHeaderSize = 8

// Compress compresses a payload block. Empty input stays empty. Blocks that
// do not compress below 90% of their size are stored raw under the same
// header so Decompress stays uniform.
func Compress(data []byte, c Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var compressed []byte
	var err error

	switch c {
	case CompressionNone:
		compressed = nil
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, errors.New("codec: unknown compression")
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return buf[:n], nil
}

// Decompress reverses Compress. Empty input stays empty.
func Decompress(data []byte, c Compression) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < blockHeaderSize {
		return nil, errors.New("codec: block too small for header")
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint32(len(data)) < blockHeaderSize+uncompressedSize {
			return nil, errors.New("codec: truncated raw block")
		}
		out := make([]byte, uncompressedSize)
		copy(out, data[blockHeaderSize:blockHeaderSize+uncompressedSize])
		return out, nil
	}

	if uint32(len(data)) < blockHeaderSize+compressedSize {
		return nil, errors.New("codec: truncated compressed block")
	}
	block := data[blockHeaderSize : blockHeaderSize+compressedSize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(block, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(block, make([]byte, 0, uncompressedSize))
		zstdDecoderPool.Put(dec)
		return out, err
	default:
		return nil, errors.New("codec: unknown compression")
	}
}
