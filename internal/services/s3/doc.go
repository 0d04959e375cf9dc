// Package s3 implements the native S3 transfer backend on aws-sdk-go-v2.
// It maps the staging tree onto bucket keys under an optional prefix and
// uploads through the SDK's transfer manager, so large files multipart
// without extra plumbing.
package s3
