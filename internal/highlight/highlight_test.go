package highlight

import "testing"

func TestScan_Categories(t *testing.T) {
	src := `# heading
let files = ["a.go"]
session draft "plan {files}" -> "build"
loop until **done** (max: 3):
    do step
`
	spans := Scan(src, "test.prose")

	counts := map[string]int{}
	for _, s := range spans {
		counts[s.Category]++
	}

	if counts[CategoryComment] != 1 {
		t.Errorf("comments: got %d, want 1", counts[CategoryComment])
	}
	if counts[CategoryString] != 3 {
		t.Errorf("strings: got %d, want 3", counts[CategoryString])
	}
	if counts[CategoryNumber] != 1 {
		t.Errorf("numbers: got %d, want 1", counts[CategoryNumber])
	}
	if counts[CategoryDiscretion] != 1 {
		t.Errorf("discretion: got %d, want 1", counts[CategoryDiscretion])
	}
	if counts[CategoryKeyword] == 0 {
		t.Error("expected keyword spans")
	}
}

func TestScan_OrderedAndNonOverlapping(t *testing.T) {
	src := `files | map: session "review {item}" | filter: **worth keeping**
parallel ("any", 2):
    session "a"
    session "b"
`
	spans := Scan(src, "test.prose")
	if len(spans) == 0 {
		t.Fatal("expected highlight spans")
	}

	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.Span.Start.Offset < prev.Span.End.Offset {
			t.Errorf("span %d overlaps previous: %s then %s", i, prev.Span, cur.Span)
		}
	}
}

func TestScan_Modifiers(t *testing.T) {
	src := "session \"\"\"\nbody\n\"\"\" -> \"next\"\n***it\nholds***\n"
	spans := Scan(src, "test.prose")

	var haveTriple, haveChain, haveMultiline bool
	for _, s := range spans {
		for _, m := range s.Modifiers {
			switch m {
			case ModifierTriple:
				haveTriple = true
			case ModifierChain:
				haveChain = true
			case ModifierMultiline:
				haveMultiline = true
			}
		}
	}
	if !haveTriple {
		t.Error("triple string should carry the triple modifier")
	}
	if !haveChain {
		t.Error("arrow should carry the chain modifier")
	}
	if !haveMultiline {
		t.Error("multiline discretion should carry the multiline modifier")
	}
}

func TestScan_DegradedInputStillScans(t *testing.T) {
	spans := Scan(`session "unterminated`, "test.prose")
	if len(spans) < 2 {
		t.Fatalf("got %d spans, want keyword plus string", len(spans))
	}
	if spans[0].Category != CategoryKeyword {
		t.Errorf("span 0: got %s, want keyword", spans[0].Category)
	}
}
