// Package sanitize cleans CMS-authored HTML before it is rendered.
//
// HTML applies the site policy: basic formatting, links that open off-site
// in a new tab with rel="nofollow noopener", images, tables, and iframes from
// the audio and video hosts the station embeds (Mixcloud, YouTube, Vimeo,
// SoundCloud). Scripts, event handlers and javascript: URLs never survive.
//
// Text and Excerpt strip all markup for meta descriptions and cards.
// Markdown renders GitHub-flavoured markdown and then applies HTML.
package sanitize
