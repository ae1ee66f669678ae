package scheduler

import (
	"testing"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
)

func TestDeriveBucketProvenance(t *testing.T) {
	cases := []struct {
		name       string
		path       string
		wantBucket string
		wantProv   model.Provenance
	}{
		{"inbox with subdirectory", "/root/inbox/personal/note.md", "personal", model.ProvenanceInternal},
		{"inbox without subdirectory", "/root/inbox/note.md", "inbox", model.ProvenanceInternal},
		{"external inbox subdirectory", "/root/external-inbox/scraped/page.md", "scraped", model.ProvenanceExternal},
		{"web scrape anywhere in path", "/root/imports/web_scrape/page.md", "imports", model.ProvenanceExternal},
		{"outside any inbox root", "/root/notes/idea.md", "notes", model.ProvenanceInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bucket, prov := DeriveBucketProvenance("/root", tc.path)
			if bucket != tc.wantBucket {
				t.Errorf("bucket = %q, want %q", bucket, tc.wantBucket)
			}
			if prov != tc.wantProv {
				t.Errorf("provenance = %q, want %q", prov, tc.wantProv)
			}
		})
	}
}

func TestMatchBucketRule(t *testing.T) {
	rules := []config.BucketRule{
		{Pattern: "inbox/receipts/*", Bucket: "finance", Provenance: "internal"},
		{Pattern: "inbox/personal/*", Bucket: "journal"},
	}

	bucket, prov, ok := matchBucketRule(rules, "/root", "/root/inbox/receipts/jan.md")
	if !ok || bucket != "finance" || prov != "internal" {
		t.Fatalf("expected finance/internal match, got bucket=%q prov=%q ok=%v", bucket, prov, ok)
	}

	bucket, _, ok = matchBucketRule(rules, "/root", "/root/inbox/personal/note.md")
	if !ok || bucket != "journal" {
		t.Fatalf("expected journal match, got bucket=%q ok=%v", bucket, ok)
	}

	_, _, ok = matchBucketRule(rules, "/root", "/root/inbox/work/note.md")
	if ok {
		t.Fatalf("expected no rule match for an unrouted path")
	}
}
