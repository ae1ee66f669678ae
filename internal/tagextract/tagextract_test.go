package tagextract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rsbalchii/anchoros/internal/config"
)

func TestSystemTags_ProjectAndSrc(t *testing.T) {
	labels, archive := SystemTags("projects/Apollo/src/main.go")
	if archive {
		t.Error("did not expect archive weighting")
	}
	assertContains(t, labels, "#project:Apollo")
	assertContains(t, labels, "#src")
	assertContains(t, labels, "#code")
}

func TestSystemTags_Archive(t *testing.T) {
	labels, archive := SystemTags("history/2023/notes.md")
	if !archive {
		t.Error("expected archive weighting beneath history/")
	}
	assertContains(t, labels, "#Archive")
	assertContains(t, labels, "#doc")
}

func newTestExtractor(t *testing.T, keywords []string) *Extractor {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "internal_tags.json")
	data := `{"keywords":["Quasar","Nebula"]}`
	if len(keywords) > 0 {
		data = `{"keywords":["` + keywords[0] + `"]}`
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := config.LoadKeywordCatalog(path)
	if err != nil && cat == nil {
		t.Fatalf("load catalog: %v", err)
	}
	return New(cat)
}

func TestContentTags_ExplicitAndTemporal(t *testing.T) {
	e := newTestExtractor(t, nil)
	labels := e.ContentTags("Met up in March 2024 with #sidequest plans.")
	assertContains(t, labels, "#sidequest")
	assertContains(t, labels, "#2024")
	assertContains(t, labels, "#March")
}

func TestSemanticCategories_Relationship(t *testing.T) {
	e := newTestExtractor(t, nil)
	labels := e.ContentTags("Jade and Morgan discussed the roadmap together.")
	assertContains(t, labels, "#Relationship")
}

func TestSemanticCategories_Narrative(t *testing.T) {
	e := newTestExtractor(t, nil)
	labels := e.ContentTags("Jade visited in March 2024 and told the whole story.")
	assertContains(t, labels, "#Narrative")
}

func TestSemanticCategories_Technical(t *testing.T) {
	e := newTestExtractor(t, nil)
	labels := e.ContentTags("We need to refactor the database client function.")
	assertContains(t, labels, "#Technical")
}

func TestAtomID_StableForSameLabel(t *testing.T) {
	a := AtomID("#code")
	b := AtomID("#code")
	if a != b {
		t.Errorf("expected same atom id for same label, got %q != %q", a, b)
	}
	if len(a) != AtomIDPrefixLen {
		t.Errorf("expected prefix length %d, got %d", AtomIDPrefixLen, len(a))
	}
}

func assertContains(t *testing.T, labels []string, want string) {
	t.Helper()
	for _, l := range labels {
		if l == want {
			return
		}
	}
	t.Errorf("expected labels to contain %q, got %v", want, labels)
}
