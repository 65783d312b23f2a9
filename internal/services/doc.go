// Package services defines shared utilities consumed by the site handlers,
// the external API clients and the migration jobs.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, route patterns and migration run
//     IDs for logging.
//   - Structured error markers plus the Wrap helper, APIError for non-2xx
//     upstream answers, and HTTPStatus to translate failures into responses.
//   - Retry with bounded backoff for transient upstream failures.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the site and the batch jobs.
package services
