package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

const medicalJSON = `{
  "heart": "قلب",
  "lung": "رئة",
  "heart attack": "نوبة قلبية",
  "Blood Pressure": "ضغط الدم"
}`

const definitionsJSON = `{
  "definitions": [
    {"term": "myocardial infarction", "definition": "heart attack"},
    {"term": "infarction", "definition": "tissue death"},
    {"term": "cardiac arrest", "definition": "heart stops"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLookup(t *testing.T) {
	d := Open(writeFile(t, "dictionary.json", medicalJSON))

	tests := []struct {
		name   string
		query  string
		want   string
		wantOK bool
	}{
		{name: "exact", query: "heart", want: "قلب", wantOK: true},
		{name: "case and punctuation", query: "Heart!", want: "قلب", wantOK: true},
		{name: "surrounding whitespace", query: "  LUNG  ", want: "رئة", wantOK: true},
		{name: "normalized stored key", query: "blood pressure", want: "ضغط الدم", wantOK: true},
		{name: "fuzzy prefixes matched term", query: "hart", want: "heart: قلب", wantOK: true},
		{name: "fuzzy multi word", query: "heart atack", want: "heart attack: نوبة قلبية", wantOK: true},
		{name: "no match", query: "xyz", wantOK: false},
		{name: "punctuation only", query: "?!", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Lookup(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestLookupPrefersExactOverFuzzy(t *testing.T) {
	d := New()
	d.Add("hearts", "قلوب")
	d.Add("heart", "قلب")

	for _, query := range []string{"heart", "HEART", "heart.", " heart"} {
		got, ok := d.Lookup(query)
		if !ok || got != "قلب" {
			t.Errorf("Lookup(%q) = %q, %v, want exact match", query, got, ok)
		}
	}
}

func TestDefine(t *testing.T) {
	d := Open(writeFile(t, "definitions.json", definitionsJSON))

	tests := []struct {
		name   string
		query  string
		want   string
		wantOK bool
	}{
		{name: "exact", query: "Infarction", want: "tissue death", wantOK: true},
		{name: "suffix and whole word", query: "arrest", want: "cardiac arrest: heart stops", wantOK: true},
		{name: "prefix and whole word", query: "cardiac", want: "cardiac arrest: heart stops", wantOK: true},
		{name: "fuzzy fallback", query: "infraction", want: "infarction: tissue death", wantOK: true},
		{name: "weak partial and weak fuzzy", query: "card", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Define(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("Define(%q) ok = %v (%q), want %v", tt.query, ok, got, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Define(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestPartialScore(t *testing.T) {
	tests := []struct {
		query string
		term  string
		want  float64
	}{
		{query: "arrest", term: "cardiac arrest", want: 6.0/14.0*0.4 + 0.4 + 0.2},
		{query: "cardiac", term: "cardiac arrest", want: 7.0/14.0*0.4 + 0.2 + 0.2},
		{query: "card", term: "cardiac arrest", want: 4.0/14.0*0.4 + 0.2},
		{query: "iac arr", term: "cardiac arrest", want: 7.0 / 14.0 * 0.4},
		{query: "lung", term: "cardiac arrest", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := partialScore(tt.query, tt.term)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("partialScore(%q, %q) = %v, want %v", tt.query, tt.term, got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	d := Open(writeFile(t, "dictionary.json", medicalJSON))

	got := d.Search("HEART", 10)
	if len(got) != 2 || got[0].Term != "heart" || got[1].Term != "heart attack" {
		t.Fatalf("Search(HEART) = %v, want heart and heart attack in load order", got)
	}

	got = d.Search("heart", 1)
	if len(got) != 1 || got[0].Term != "heart" {
		t.Errorf("Search(heart, 1) = %v", got)
	}

	got = d.Search("", 0)
	if len(got) != 4 {
		t.Errorf("Search(\"\") returned %d entries, want 4", len(got))
	}
}

func TestLoadFormats(t *testing.T) {
	t.Run("yaml translations keep order", func(t *testing.T) {
		d := Open(writeFile(t, "dictionary.yaml", "kidney: كلية\nliver: كبد\nnested:\n  a: b\n"))
		n, loaded := d.Stats()
		if !loaded || n != 2 {
			t.Fatalf("Stats() = %d, %v, want 2, true", n, loaded)
		}
		if got := d.Search("", 0); got[0].Term != "kidney" || got[1].Term != "liver" {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("yaml definitions", func(t *testing.T) {
		d := Open(writeFile(t, "definitions.yml", "definitions:\n  - term: Anemia\n    definition: low red cells\n"))
		got, ok := d.Define("anemia")
		if !ok || got != "low red cells" {
			t.Errorf("Define(anemia) = %q, %v", got, ok)
		}
	})

	t.Run("duplicate keys after normalization", func(t *testing.T) {
		d := Open(writeFile(t, "dictionary.json", `{"Heart": "a", "lung": "b", "heart!": "c"}`))
		n, _ := d.Stats()
		if n != 2 {
			t.Fatalf("Stats() entries = %d, want 2", n)
		}
		if got, _ := d.Lookup("heart"); got != "c" {
			t.Errorf("Lookup(heart) = %q, want c", got)
		}
		if got := d.Search("", 0); got[0].Term != "heart" {
			t.Errorf("duplicate moved position: %v", got)
		}
	})

	t.Run("non-string values are skipped", func(t *testing.T) {
		d := Open(writeFile(t, "dictionary.json", `{"heart": "قلب", "count": 3}`))
		if n, _ := d.Stats(); n != 1 {
			t.Errorf("Stats() entries = %d, want 1", n)
		}
	})
}

func TestMalformedAndMissingFiles(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "malformed json", path: func(t *testing.T) string { return writeFile(t, "d.json", `{"heart": `) }},
		{name: "json array", path: func(t *testing.T) string { return writeFile(t, "d.json", `["heart"]`) }},
		{name: "malformed yaml", path: func(t *testing.T) string { return writeFile(t, "d.yaml", "a: [b") }},
		{name: "missing", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.json") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Open(tt.path(t))
			n, loaded := d.Stats()
			if n != 0 || loaded {
				t.Errorf("Stats() = %d, %v, want empty and not loaded", n, loaded)
			}
			if _, ok := d.Lookup("heart"); ok {
				t.Error("Lookup() found a term in an empty dictionary")
			}
		})
	}
}

func TestReloadReplacesContents(t *testing.T) {
	d := Open(writeFile(t, "a.json", `{"heart": "قلب"}`))
	if err := d.Load(writeFile(t, "b.json", `{"lung": "رئة"}`)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := d.Lookup("heart"); ok {
		t.Error("old entry survived reload")
	}
	if got, ok := d.Lookup("lung"); !ok || got != "رئة" {
		t.Errorf("Lookup(lung) = %q, %v", got, ok)
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   Normalizer
		in   string
		want string
	}{
		{name: "default strips punctuation", fn: DefaultNormalizer, in: " Heart-Attack! ", want: "heartattack"},
		{name: "default keeps arabic", fn: DefaultNormalizer, in: "قلب؟", want: "قلب"},
		{name: "default keeps underscore", fn: DefaultNormalizer, in: "a_b", want: "a_b"},
		{name: "custom charset", fn: StripNormalizer("!?"), in: "Heart-Attack!?", want: "heart-attack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithNormalizer(t *testing.T) {
	d := New(WithNormalizer(StripNormalizer("!")))
	d.Add("Heart-Attack", "نوبة")
	if got, ok := d.Lookup("heart-attack!"); !ok || got != "نوبة" {
		t.Errorf("Lookup() = %q, %v", got, ok)
	}
}
