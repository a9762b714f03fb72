package normalize

import (
	"math"
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"PARIS", "paris"},
		{"Saint-Étienne", "saint etienne"},
		{"L'Haÿ-les-Roses", "l'hay les roses"},
		{"Œuvre", "oeuvre"},
		{"FRANÇOIS", "francois"},
		{"Élodie", "elodie"},
		{"  Les Halles ", "les halles"},
		{"", ""},
		{"simple", "simple"},
	}
	for _, tt := range tests {
		got := Name(tt.input)
		if got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"Saint-Étienne", "ÆSOP", "Les Halles-Nord", "--", "Ñoño", "straße", "  x - y  ", "",
	}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Errorf("Name(Name(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, ""},
		{math.NaN(), ""},
		{"Aix-en-Provence", "aix en provence"},
		{[]byte("Évry"), "evry"},
		{int64(75001), "75001"},
		{float64(1001), "1001"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := Value(tt.input); got != tt.want {
			t.Errorf("Value(%#v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Civilité", "civilit_"},
		{"Code Postal", "code_postal"},
		{"nom_de_la_commune", "nom_de_la_commune"},
		{"N-1913", "n_1913"},
		{"LIB_IRIS", "lib_iris"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ColumnName(tt.input); got != tt.want {
			t.Errorf("ColumnName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
