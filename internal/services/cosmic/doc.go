// Package cosmic is a small client for the Cosmic headless CMS REST API (v3).
//
// Reads use the bucket read key and go through Objects/Object. Cosmic answers
// 404 when a query matches nothing; Objects reports that as an empty list so
// callers only see ErrNotFound from Object, where a single result is expected.
//
// Writes (InsertObject, EditObject, UploadMedia) require the bucket write key
// and fail with services.ErrConfiguration when it is absent. They are used by
// the membership webhooks and the legacy migration jobs.
//
// Non-2xx answers surface as *services.APIError so callers can classify them
// with errors.Is against the services markers. Idempotent requests are retried
// with services.Retry.
package cosmic
