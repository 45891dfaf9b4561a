// Package detectors finds security-sensitive PHP constructs. A token scan and
// a pattern scan run over the same text and their results are merged so each
// (indicator, line) pair is reported once.
package detectors
