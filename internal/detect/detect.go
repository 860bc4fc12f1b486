// Package detect classifies fetch results against a target's last known hash.
package detect

import "sitewatch/internal/monitor"

// Classify compares the fresh content hash with the target's last known hash.
// The hash is a deterministic function of normalized extracted text, so equal
// hashes mean equal content for a fixed target type.
func Classify(target monitor.Target, contentHash string) monitor.Classification {
	if target.LastContentHash == nil {
		return monitor.ClassFirstSeen
	}
	if *target.LastContentHash == contentHash {
		return monitor.ClassUnchanged
	}
	return monitor.ClassChanged
}

// Escalates reports whether the classification is handed to the semantic
// analyzer. UNCHANGED short-circuits the rest of the pipeline.
func Escalates(class monitor.Classification) bool {
	return class == monitor.ClassFirstSeen || class == monitor.ClassChanged
}
