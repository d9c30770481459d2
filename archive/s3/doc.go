// Package s3 implements archive.Store on Amazon S3 and archive.ManifestStore
// on DynamoDB.
//
// Signature records are immutable per version, so plain PutObject semantics
// are enough for blobs. Manifest commits need compare-and-swap, which S3
// lacks; the DynamoDB-backed ManifestStore supplies it through conditional
// writes.
package s3
