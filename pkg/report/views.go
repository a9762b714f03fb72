package report

import (
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// ChartType selects the chart drawn for a view.
type ChartType int

const (
	ColumnChart ChartType = iota
	BarChart
	PieChart
)

// View is one sheet: the raw columns, an aggregate of them and a chart of
// the aggregate.
type View struct {
	Sheet   string
	Columns []string
	XTitle  string
	YTitle  string
	Chart   ChartType
	Percent bool
	Build   func(*table.Table) (Aggregate, error)
	// SeriesColor picks a fill per series name; nil keeps the default.
	SeriesColor func(series string) string
}

// Workbook groups the views rendered from one table.
type Workbook struct {
	Name  string
	File  string
	Views []View
	// Prepare derives helper columns on a copy of the table before rendering.
	Prepare func(*table.Table)
}

// Preset names.
const (
	PresetGeo        = "geo"
	PresetDemography = "demography"
	PresetReferences = "references"
)

// Presets lists the workbook names accepted by Preset.
var Presets = []string{PresetGeo, PresetDemography, PresetReferences}

// Preset returns a predefined workbook by name.
func Preset(name string) (Workbook, bool) {
	switch name {
	case PresetGeo:
		return GeoWorkbook(), true
	case PresetDemography:
		return DemographyWorkbook(), true
	case PresetReferences:
		return ReferencesWorkbook(), true
	}
	return Workbook{}, false
}

const (
	colGenderLabel = "sexe"
	labelMale      = "Homme"
	labelFemale    = "Femme"
	colorBlue      = "0000FF"
	colorPink      = "FFC0CB"
)

// GenderLabel maps a civility to "Homme" or "Femme". Anything that is not a
// masculine civility, null included, counts as "Femme".
func GenderLabel(civility any) string {
	s, _ := table.String(civility)
	switch s {
	case "M", "Mr", "Monsieur":
		return labelMale
	}
	return labelFemale
}

func genderColor(series string) string {
	if series == labelMale {
		return colorBlue
	}
	return colorPink
}

func counts(col, category string) func(*table.Table) (Aggregate, error) {
	return func(t *table.Table) (Aggregate, error) { return ValueCounts(t, col, category, "Counts") }
}

func mean(group, value, label string) func(*table.Table) (Aggregate, error) {
	return func(t *table.Table) (Aggregate, error) { return GroupMean(t, group, value, label) }
}

func sums(category string, cols ...string) func(*table.Table) (Aggregate, error) {
	return func(t *table.Table) (Aggregate, error) { return ColumnSums(t, cols, category, "Counts") }
}

// GeoWorkbook summarizes the geo enrichment output.
func GeoWorkbook() Workbook {
	return Workbook{
		Name: PresetGeo,
		File: "01enriched_clients_with_charts.xlsx",
		Prepare: func(t *table.Table) {
			for i := range t.Rows {
				t.Set(i, colGenderLabel, GenderLabel(t.Value(i, "civilit_")))
			}
		},
		Views: []View{
			{
				Sheet: "Stats de Sexe", Columns: []string{"civilit_", "nom", "prenom"},
				XTitle: "civilit_", YTitle: "Counts", Build: counts("civilit_", "civilit_"),
				SeriesColor: genderColor,
			},
			{
				Sheet: "Stats de Ville", Columns: []string{"ville", "nom", "prenom"},
				XTitle: "Ville", YTitle: "Counts", Build: counts("ville", "Ville"),
				SeriesColor: genderColor,
			},
			{
				Sheet: "Pourcentage Sexe", Columns: []string{colGenderLabel},
				XTitle: "Sexe", YTitle: "Pourcentage", Chart: PieChart, Percent: true,
				Build: func(t *table.Table) (Aggregate, error) {
					return Percentages(t, colGenderLabel, "Sexe", "Pourcentage")
				},
				SeriesColor: genderColor,
			},
			{
				Sheet: "Sexe par Ville (Counts)", Columns: []string{"ville", colGenderLabel},
				XTitle: "ville", YTitle: "Counts",
				Build: func(t *table.Table) (Aggregate, error) {
					return Crosstab(t, "ville", colGenderLabel)
				},
				SeriesColor: genderColor,
			},
			{
				Sheet: "Stats par Code INSEE", Columns: []string{"c_insee"},
				XTitle: "Code INSEE", YTitle: "Counts", Build: counts("c_insee", "Code INSEE"),
				SeriesColor: genderColor,
			},
		},
	}
}

// DemographyWorkbook summarizes the age/gender estimation output.
func DemographyWorkbook() Workbook {
	const label = "Année Moyenne de Naissance"
	return Workbook{
		Name: PresetDemography,
		File: "02enriched_clients_with_charts.xlsx",
		Views: []View{
			{
				Sheet: "Année de Naissance", Columns: []string{"prenom", "e_annee_naissance"},
				XTitle: "prenom", YTitle: label, Build: mean("prenom", "e_annee_naissance", label),
			},
		},
	}
}

var palette = []string{"0000FF", "FFC0CB", "000000", "FF0000", "008000"}

// ReferencesWorkbook summarizes the socio-economic merge output.
func ReferencesWorkbook() Workbook {
	views := []View{
		{
			Sheet: "Moyenne Revenu par Ville", Columns: []string{"ville", "rev"},
			XTitle: "Ville", YTitle: "Moyenne Revenu", Build: mean("ville", "rev", "Moyenne Revenu"),
		},
		{
			Sheet: "Répartition Type Logement", Columns: []string{"propr", "locat", "locat_hlm"},
			XTitle: "Type Logement", YTitle: "Counts", Chart: BarChart,
			Build: sums("Type Logement", "propr", "locat", "locat_hlm"),
		},
		{
			Sheet: "Qualité Logement par Commune", Columns: []string{"nom_de_la_commune", "c_indice_qualite_logement"},
			XTitle: "Commune", YTitle: "Qualité Logement Moyenne",
			Build: mean("nom_de_la_commune", "c_indice_qualite_logement", "Qualité Logement Moyenne"),
		},
		{
			Sheet: "Répartition Niveau Éducation", Columns: []string{"et_niv0", "et_niv1", "et_niv2"},
			XTitle: "Niveau Éducation", YTitle: "Counts",
			Build: sums("Niveau Éducation", "et_niv0", "et_niv1", "et_niv2"),
		},
		{
			Sheet: "Familles Monoparentales", Columns: []string{"nom_de_la_commune", "tx_fammono"},
			XTitle: "Commune", YTitle: "Taux Familles Monoparentales",
			Build: mean("nom_de_la_commune", "tx_fammono", "Taux Familles Monoparentales"),
		},
		{
			Sheet: "Répartition Type Couple", Columns: []string{"tx_coupsenf", "tx_coupaenf"},
			XTitle: "Type Couple", YTitle: "Counts", Chart: BarChart,
			Build: sums("Type Couple", "tx_coupsenf", "tx_coupaenf"),
		},
		{
			Sheet: "Qualité Revenu par Ville", Columns: []string{"ville", "c_indice_qualite_rev"},
			XTitle: "Ville", YTitle: "Qualité Revenu Moyenne",
			Build: mean("ville", "c_indice_qualite_rev", "Qualité Revenu Moyenne"),
		},
	}
	for k := range views {
		c := palette[k%len(palette)]
		views[k].SeriesColor = func(string) string { return c }
	}
	return Workbook{Name: PresetReferences, File: "03enriched_clients_with_charts.xlsx", Views: views}
}
