// Package s3 provides S3-compatible object storage access for driver
// payloads.
//
// Fleets that mirror vendor driver packages into object storage reference
// them with s3://bucket/key URLs; this package adapts those URLs to the
// fetch.Source interface so the downloader treats them like any other
// payload origin.
package s3
