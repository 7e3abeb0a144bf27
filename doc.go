// Package zstd implements the core decoder of the Zstandard compressed
// data format (RFC 8878): frame and block parsing, FSE and Huffman
// entropy decoding, sequence execution, a sliding-window output buffer,
// dictionary loading and a streaming driver.
//
// The compressor, the dictionary trainer and the multithreaded
// compression wrapper are not part of this package; callers that need
// to produce zstd output should reach for a full encoder such as
// github.com/klauspost/compress/zstd.
package zstd
