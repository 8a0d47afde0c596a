// Package server implements the filedrive HTTP service: cookie-session
// authentication, folder and file registries backed by Postgres, folder
// sharing, and blob storage on either the local filesystem or a MinIO
// bucket.
package server
