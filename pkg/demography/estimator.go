package demography

import (
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/reference"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Output columns.
const (
	ColGender      = "e_sexe"
	ColAgeGeo      = "e_age_geo"
	ColAgeName     = "e_age_prenom"
	ColAge         = "e_age"
	ColReliability = "e_top_age_ok"
	ColBirthYear   = "e_annee_naissance"
	ColWithinFive  = "e_p_5ans"
	ColConfidence  = "indice_conf_age"
)

// Options names the input columns and switches the optional behaviors.
// Empty Gender, DeclaredAge or AdjustBy mean the column is not used.
type Options struct {
	FirstName                string
	Gender                   string
	DeclaredAge              string
	DeclaredAgeAuthoritative bool
	GeoCode                  string
	EstimateGender           bool
	Adjust                   bool
	AdjustBy                 string
	CurrentYear              int
}

// OptionsFrom maps the demography config section.
func OptionsFrom(c config.Demography, currentYear int) Options {
	return Options{
		FirstName:                c.FirstName,
		Gender:                   c.Gender,
		DeclaredAge:              c.DeclaredAge,
		DeclaredAgeAuthoritative: c.DeclaredAgeAuthoritative,
		GeoCode:                  c.GeoCode,
		EstimateGender:           c.EstimateGender,
		Adjust:                   c.Adjust,
		AdjustBy:                 c.AdjustBy,
		CurrentYear:              currentYear,
	}
}

func (o Options) normalized() Options {
	n := func(c string) string {
		if c == "" {
			return ""
		}
		return normalize.ColumnName(c)
	}
	o.FirstName = n(o.FirstName)
	o.Gender = n(o.Gender)
	o.DeclaredAge = n(o.DeclaredAge)
	o.GeoCode = n(o.GeoCode)
	o.AdjustBy = n(o.AdjustBy)
	return o
}

// Row is the per-row input of the estimator.
type Row struct {
	FirstName   any
	Gender      any
	DeclaredAge any
	GeoCode     any
}

// Estimate is the per-row output.
type Estimate struct {
	Gender      string // "" when unknown
	AgeGeo      float64
	HasAgeGeo   bool
	AgeName     float64
	HasAgeName  bool
	Age         float64
	HasAge      bool
	Reliability Reliability
}

// Confidence grades the agreement of the two estimators.
func (e Estimate) Confidence() string {
	return Confidence(e.AgeGeo, e.HasAgeGeo, e.AgeName, e.HasAgeName)
}

// Stats tallies rows per confidence label and reliability flag.
type Stats struct {
	Confidence  map[string]int
	Reliability map[Reliability]int
}

// Estimator holds the demographic reference indexes.
type Estimator struct {
	ages   *reference.AgeIndex
	names  *reference.FirstNameIndex
	opts   Options
	logger *slog.Logger
}

// New creates an Estimator. opts.CurrentYear must be set.
func New(ages *reference.AgeIndex, names *reference.FirstNameIndex, opts Options, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{ages: ages, names: names, opts: opts.normalized(), logger: logger}
}

// EstimateRow computes gender and age for one row. It has no side effects.
func (e *Estimator) EstimateRow(r Row) Estimate {
	var out Estimate
	declaredGender, _ := table.String(r.Gender)
	firstName, _ := table.String(r.FirstName)
	out.Gender = Gender(declaredGender, firstName, e.opts.EstimateGender)

	declared, hasDeclared := table.Float(r.DeclaredAge)
	if hasDeclared && e.opts.DeclaredAgeAuthoritative {
		out.Age, out.HasAge, out.Reliability = declared, true, Declared
		return out
	}

	if code, ok := reference.Code(r.GeoCode); ok {
		if b, ok := e.ages.Lookup(code); ok {
			out.AgeGeo, out.HasAgeGeo = GeoAge(b)
		}
	}
	if h, ok := e.names.Lookup(r.FirstName); ok {
		out.AgeName, out.HasAgeName = NameCohortAge(h, e.opts.CurrentYear)
	}

	switch {
	case out.HasAgeGeo && out.HasAgeName:
		out.Age, out.HasAge = (out.AgeGeo+out.AgeName)/2, true
	case out.HasAgeGeo:
		out.Age, out.HasAge = out.AgeGeo, true
	case out.HasAgeName:
		out.Age, out.HasAge = out.AgeName, true
	}
	switch {
	case out.HasAge:
		out.Reliability = Estimated
	case hasDeclared:
		out.Age, out.HasAge, out.Reliability = declared, true, Declared
	default:
		out.Reliability = Unavailable
	}
	return out
}

func (e *Estimator) required() []string {
	o := e.opts
	cols := []string{o.FirstName, o.GeoCode, o.Gender, o.DeclaredAge}
	if o.Adjust {
		cols = append(cols, o.AdjustBy)
	}
	return cols
}

// Apply returns a copy of in extended with the estimate columns. A missing
// input column fails with a *table.MissingColumnError before any row is
// processed.
func (e *Estimator) Apply(in *table.Table) (*table.Table, Stats, error) {
	t := in.Clone()
	t.NormalizeColumnNames()
	if err := t.Require(e.required()...); err != nil {
		return nil, Stats{}, err
	}

	o := e.opts
	cell := func(i int, col string) any {
		if col == "" {
			return nil
		}
		return t.Value(i, col)
	}
	est := make([]Estimate, t.Len())
	for i := range t.Rows {
		est[i] = e.EstimateRow(Row{
			FirstName:   cell(i, o.FirstName),
			Gender:      cell(i, o.Gender),
			DeclaredAge: cell(i, o.DeclaredAge),
			GeoCode:     cell(i, o.GeoCode),
		})
	}
	if o.Adjust {
		var groups []any
		if o.AdjustBy != "" {
			groups = t.ColumnValues(o.AdjustBy)
		}
		adjust(est, groups)
	}

	stats := Stats{Confidence: make(map[string]int), Reliability: make(map[Reliability]int)}
	for i, x := range est {
		writeEstimate(t, i, x, o.CurrentYear)
		stats.Confidence[x.Confidence()]++
		stats.Reliability[x.Reliability]++
	}

	e.logger.Info("age and gender estimation done",
		"rows", t.Len(),
		"declared", stats.Reliability[Declared],
		"estimated", stats.Reliability[Estimated],
		"unavailable", stats.Reliability[Unavailable],
		"confidence_high", stats.Confidence[ConfidenceHigh],
		"confidence_none", stats.Confidence[ConfidenceNone],
	)
	return t, stats, nil
}

// adjust shrinks every resolved age halfway toward the mean of its group.
// With no groups the global mean is used. Null group values form a group.
func adjust(est []Estimate, groups []any) {
	key := func(i int) string {
		if groups == nil {
			return ""
		}
		s, ok := table.String(groups[i])
		if !ok {
			return "\x00null"
		}
		return s
	}
	type acc struct {
		sum float64
		n   int
	}
	means := make(map[string]*acc)
	for i, x := range est {
		if !x.HasAge {
			continue
		}
		a := means[key(i)]
		if a == nil {
			a = &acc{}
			means[key(i)] = a
		}
		a.sum += x.Age
		a.n++
	}
	for i := range est {
		if !est[i].HasAge {
			continue
		}
		a := means[key(i)]
		est[i].Age = Shrink(est[i].Age, a.sum/float64(a.n))
	}
}

func writeEstimate(t *table.Table, i int, x Estimate, currentYear int) {
	opt := func(v float64, ok bool) any {
		if !ok {
			return nil
		}
		return v
	}
	var gender, birthYear any
	if x.Gender != "" {
		gender = x.Gender
	}
	if x.HasAge {
		birthYear = int64(BirthYear(currentYear, x.Age))
	}
	t.Set(i, ColGender, gender)
	t.Set(i, ColAgeGeo, opt(x.AgeGeo, x.HasAgeGeo))
	t.Set(i, ColAgeName, opt(x.AgeName, x.HasAgeName))
	t.Set(i, ColAge, opt(x.Age, x.HasAge))
	t.Set(i, ColReliability, int64(x.Reliability))
	t.Set(i, ColBirthYear, birthYear)
	t.Set(i, ColWithinFive, WithinFiveYears)
	t.Set(i, ColConfidence, x.Confidence())
}
