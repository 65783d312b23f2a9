// Package content is the read side of the site: it turns Cosmic objects into
// episodes, hosts, genres, editorial posts, videos and pages.
//
// Every lookup goes through the response cache under a key prefixed with the
// Cosmic object type ("episodes:", "regular-hosts:" ...), so a revalidation
// for one type purges exactly the entries built from it.
package content
