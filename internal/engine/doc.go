// Package engine orchestrates a scan: it feeds source units to a syntax
// oracle and the indicator detectors, and assembles the ordered result. It
// also enumerates units from a plugin directory, a git index or an archive.
// External consumers should use the stable facade in pkg/core.
package engine
