// Package component provides the named component registry and the Host
// component that wraps every streamed or prerendered page.
package component
