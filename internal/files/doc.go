// Package files finds and loads playlist exports on disk for the command
// line tool.
//
// Discovery lists the CSV and XLSX files of a directory in name order,
// skipping hidden and Office lock files. Loader validates each path and
// reads it into a domain.Upload, the same value the HTTP upload handler
// produces, so both entry points feed the pipeline identically.
//
// Example usage:
//
//	discovery := files.NewDiscovery(".")
//	found, err := discovery.FindPlaylistFiles("exports", "")
//
//	loader := files.NewLoader(logger, 32<<20)
//	uploads, err := loader.Load(files.Paths(found))
package files
