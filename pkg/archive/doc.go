// Package archive stores prerendered pages.
//
// A Store is written by the prerender command and can be read back by
// anything that serves the archived markup. Two backends are provided:
// DiskStore for a local directory and S3Store for an S3-compatible bucket.
//
//	store, err := archive.NewDiskStore("./dist")
//	loc, err := store.Put(ctx, "home.html", "text/html; charset=utf-8", body)
package archive
