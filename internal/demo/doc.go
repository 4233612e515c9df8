// Package demo provides sample components for the vango-stream CLI.
//
// The components cover the interesting render shapes: a page that renders
// synchronously, a dashboard whose cards load with different latencies, a
// feed whose loaded content contains further loaders, and a component whose
// load always fails.
package demo
