package split

import "testing"

func TestDetectType(t *testing.T) {
	cases := []struct {
		path, content string
		want          FragmentType
	}{
		{"notes.csv", "a,b,c", TypeData},
		{"config.yaml", "key: value", TypeData},
		{"main.go", "package main", TypeCode},
		{"thoughts.md", "```go\nfunc main() {}\n```", TypeCode},
		{"thoughts.md", "Just a plain paragraph about my day.", TypeProse},
	}
	for _, c := range cases {
		if got := DetectType(c.path, c.content); got != c.want {
			t.Errorf("DetectType(%q): got %s, want %s", c.path, got, c.want)
		}
	}
}

func TestSplit_SentenceOffsets(t *testing.T) {
	content := "Alpha. Beta! Gamma?"
	frags := Split(content, TypeProse, DefaultMaxMoleculeBytes)

	want := []struct {
		content            string
		start, end int
	}{
		{"Alpha.", 0, 6},
		{"Beta!", 7, 12},
		{"Gamma?", 13, 19},
	}
	if len(frags) != len(want) {
		t.Fatalf("expected %d fragments, got %d: %+v", len(want), len(frags), frags)
	}
	for i, w := range want {
		f := frags[i]
		if f.Content != w.content || f.StartByte != w.start || f.EndByte != w.end {
			t.Errorf("fragment %d: got {%q %d %d}, want {%q %d %d}", i, f.Content, f.StartByte, f.EndByte, w.content, w.start, w.end)
		}
	}
}

func TestSplit_OffsetsMatchContent(t *testing.T) {
	content := "First sentence here. Second sentence follows. Third one too."
	frags := Split(content, TypeProse, DefaultMaxMoleculeBytes)
	for _, f := range frags {
		if content[f.StartByte:f.EndByte] != f.Content {
			t.Errorf("offset mismatch: content[%d:%d]=%q != fragment content %q", f.StartByte, f.EndByte, content[f.StartByte:f.EndByte], f.Content)
		}
	}
}

func TestSplit_ProseAroundFencedCode(t *testing.T) {
	content := "Intro text.\n```go\nfunc main() {}\n```\nOutro text."
	frags := Split(content, TypeProse, DefaultMaxMoleculeBytes)

	var sawCode bool
	for _, f := range frags {
		if content[f.StartByte:f.EndByte] != f.Content {
			t.Fatalf("offset mismatch for %+v", f)
		}
		if f.Type == TypeCode {
			sawCode = true
		}
	}
	if !sawCode {
		t.Error("expected fenced block to be re-typed as code")
	}
}

func TestSplit_Data_OneMoleculePerLine(t *testing.T) {
	content := "a,b,c\nd,e,f\n\ng,h,i\n"
	frags := Split(content, TypeData, DefaultMaxMoleculeBytes)
	if len(frags) != 3 {
		t.Fatalf("expected 3 non-empty lines, got %d: %+v", len(frags), frags)
	}
	for _, f := range frags {
		if content[f.StartByte:f.EndByte] != f.Content {
			t.Errorf("offset mismatch for %+v", f)
		}
	}
}

func TestSplit_OversizedFragmentIsBinarySplit(t *testing.T) {
	content := ""
	for i := 0; i < 50; i++ {
		content += "this is a line without any sentence ending whatsoever so it all stays one fragment "
	}
	frags := Split(content, TypeProse, 256)
	for _, f := range frags {
		if len(f.Content) > 256 {
			t.Errorf("fragment exceeds max size: %d bytes", len(f.Content))
		}
		if content[f.StartByte:f.EndByte] != f.Content {
			t.Errorf("offset mismatch after binary split for %+v", f)
		}
	}
}

func TestSplit_Empty(t *testing.T) {
	if frags := Split("", TypeProse, DefaultMaxMoleculeBytes); len(frags) != 0 {
		t.Errorf("expected no fragments for empty input, got %d", len(frags))
	}
}
