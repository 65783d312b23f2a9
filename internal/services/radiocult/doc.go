// Package radiocult reads the station schedule, live status and artists from
// the RadioCult API. Every request carries the station API key in the
// x-api-key header.
package radiocult
