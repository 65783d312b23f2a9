// Package main hosts the wwfm CLI entrypoint and command graph.
//
// The Cobra command tree runs the public site (serve), prints the broadcast
// schedule and on-air state, and drives the Craft to Cosmic migration jobs
// with their ledger maintenance commands. It centralizes configuration
// resolution and logger setup so subcommands can focus on output.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
