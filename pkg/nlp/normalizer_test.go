package nlp

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"turkish lowercase", "GECELİK", "gecelik"},
		{"dotless capital I", "ILIK", "ılık"},
		{"char run collapse", "çoooook güzel", "çok güzel"},
		{"double letters kept", "elle", "elle"},
		{"punctuation stripped", "gecelik, var mı?!", "gecelik"},
		{"stop phrase removed", "hamile pijama arıyorum", "hamile pijama"},
		{"multi word stop phrase", "siyah gecelik var mı acaba", "siyah gecelik"},
		{"price phrase removed", "pijamanın fiyatı ne kadar", "pijama fiyatı"},
		{"softened suffix", "afrika geceliği", "afrika gecelik"},
		{"genitive suffix", "geceliğin rengi", "gecelik rengi"},
		{"plural suffix", "sabahlıklar", "sabahlık"},
		{"irregular possessive", "elbisesi güzel", "elbise güzel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Afrika geceliği var mı acaba?",
		"çoooook güzel bir hamile pijaması arıyorum",
		"SİYAH DANTELLİ GECELİK",
		"stokta mı bu",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestTurkishLower(t *testing.T) {
	tests := []struct{ in, want string }{
		{"İSTANBUL", "istanbul"},
		{"IŞIK", "ışık"},
		{"Gecelik", "gecelik"},
	}
	for _, tt := range tests {
		if got := TurkishLower(tt.in); got != tt.want {
			t.Errorf("TurkishLower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Kırmızı", "kirmizi"},
		{"gecelik", "gecelik"},
		{"ÇÖĞÜŞI", "cogusi"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFoldEquivalence(t *testing.T) {
	if Fold("kırmızı") != Fold("kirmizi") {
		t.Error("ascii spelling should fold equal to the Turkish one")
	}
	if Fold("gunes") != Fold("güneş") {
		t.Error("güneş/gunes should fold equal")
	}
}
