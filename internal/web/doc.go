// Package web serves the station website.
//
// Pages are rendered from embedded html/template files with SEO metadata
// (canonical URL, OpenGraph, JSON-LD). JSON endpoints expose the live status
// and the weekly schedule, receive Stripe webhooks, and let the CMS purge the
// response cache after an edit (/api/revalidate).
//
// Every request gets an X-Request-ID that is threaded through the context so
// upstream failures can be correlated with access log lines.
package web
