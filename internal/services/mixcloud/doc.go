// Package mixcloud reads the station archive from the public Mixcloud API.
//
// No credentials are required. Cloudcast keys are the path form Mixcloud uses
// everywhere ("/worldwidefm/show-name/"); KeyFromURL and PlayerURL convert
// between page URLs, keys and widget embeds.
package mixcloud
