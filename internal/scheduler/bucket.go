package scheduler

import (
	"path/filepath"
	"strings"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
)

// DeriveBucketProvenance implements the scheduler's per-file classification:
// the bucket is the first subdirectory beneath inbox/external-inbox when
// present, else the root-relative segment; provenance is external when the
// path passes through external-inbox or web_scrape, else internal.
func DeriveBucketProvenance(root, path string) (bucket string, provenance model.Provenance) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")

	provenance = model.ProvenanceInternal
	for _, seg := range segments {
		if seg == "external-inbox" || seg == "web_scrape" {
			provenance = model.ProvenanceExternal
			break
		}
	}

	for i, seg := range segments {
		if seg != "inbox" && seg != "external-inbox" {
			continue
		}
		// i+2 < len(segments) means there is a subdirectory between the
		// inbox root and the filename; otherwise the file sits directly
		// under the inbox root and there is no subdirectory to name.
		if i+2 < len(segments) {
			return segments[i+1], provenance
		}
		return seg, provenance
	}
	if len(segments) > 0 {
		return segments[0], provenance
	}
	return "inbox", provenance
}

// matchBucketRule checks path against rules (loaded from
// context/bucket_rules.yaml) in order and returns the first glob match's
// bucket/provenance. ok is false when no rule matches, leaving the
// default DeriveBucketProvenance classification untouched.
func matchBucketRule(rules []config.BucketRule, root, path string) (bucket, provenance string, ok bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, rule := range rules {
		matched, err := filepath.Match(rule.Pattern, rel)
		if err != nil || !matched {
			continue
		}
		return rule.Bucket, rule.Provenance, true
	}
	return "", "", false
}
