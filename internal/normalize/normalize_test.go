package normalize

import "testing"

func TestStatusTokens(t *testing.T) {
	cases := []struct {
		input string
		want  StatusCode
	}{
		{"0", StatusActive},
		{"ativo", StatusActive},
		{"  Ativo ", StatusActive},
		{"1", StatusInService},
		{"ATENDIMENTO", StatusInService},
		{"2", StatusDeactivated},
		{"Desativado", StatusDeactivated},
		{"3", StatusDeleted},
		{"deletado", StatusDeleted},
	}
	for _, tc := range cases {
		if got := Status(tc.input); got != tc.want {
			t.Fatalf("Status(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestStatusDefaultsToActive(t *testing.T) {
	for _, input := range []string{"", "unknown", "4", "ativo?"} {
		if got := Status(input); got != StatusActive {
			t.Fatalf("Status(%q) = %d, want StatusActive", input, got)
		}
		if Recognized(input) {
			t.Fatalf("Recognized(%q) = true, want false", input)
		}
	}
	if !Recognized("Atendimento") {
		t.Fatalf("Recognized(\"Atendimento\") = false, want true")
	}
}

func TestFoldStripsDiacriticsAndCase(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"São Paulo", "sao paulo"},
		{"  SÃO PAULO  ", "sao paulo"},
		{"Brasília", "brasilia"},
		{"Goiânia", "goiania"},
		{"Maceió", "maceio"},
		{"plain town", "plain town"},
	}
	for _, tc := range cases {
		if got := Fold(tc.input); got != tc.want {
			t.Fatalf("Fold(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSplitCityUF(t *testing.T) {
	name, uf := SplitCityUF("Campinas/sp")
	if name != "Campinas" || uf != "SP" {
		t.Fatalf("unexpected split: %q %q", name, uf)
	}

	name, uf = SplitCityUF(" Belo Horizonte / mg ")
	if name != "Belo Horizonte" || uf != "MG" {
		t.Fatalf("unexpected split: %q %q", name, uf)
	}

	name, uf = SplitCityUF("Curitiba")
	if name != "Curitiba" || uf != "" {
		t.Fatalf("expected empty state code, got %q %q", name, uf)
	}
}
