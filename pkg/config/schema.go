package config

import (
	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Schema maps semantic roles to client table columns. An empty field means
// the role is absent from the input.
type Schema struct {
	Civility          string `yaml:"civility"`
	FirstName         string `yaml:"first_name"`
	LastName          string `yaml:"last_name"`
	NameComplement    string `yaml:"name_complement"`
	Address           string `yaml:"address"`
	AddressComplement string `yaml:"address_complement"`
	PlaceName         string `yaml:"place_name"`
	PostalCode        string `yaml:"postal_code"`
	City              string `yaml:"city"`
	ClientID          string `yaml:"client_id"`
	Country           string `yaml:"country"`
	Email             string `yaml:"email"`
	Phone             string `yaml:"phone"`
}

// Columns lists the mapped columns in projection order.
func (s Schema) Columns() []string {
	all := []string{
		s.Civility, s.FirstName, s.LastName, s.NameComplement, s.Address,
		s.AddressComplement, s.PlaceName, s.PostalCode, s.City, s.ClientID,
		s.Country, s.Email, s.Phone,
	}
	var out []string
	for _, c := range all {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Normalized returns the mapping with every column name passed through
// normalize.ColumnName, matching a table after NormalizeColumnNames.
func (s Schema) Normalized() Schema {
	n := func(c string) string {
		if c == "" {
			return ""
		}
		return normalize.ColumnName(c)
	}
	return Schema{
		Civility:          n(s.Civility),
		FirstName:         n(s.FirstName),
		LastName:          n(s.LastName),
		NameComplement:    n(s.NameComplement),
		Address:           n(s.Address),
		AddressComplement: n(s.AddressComplement),
		PlaceName:         n(s.PlaceName),
		PostalCode:        n(s.PostalCode),
		City:              n(s.City),
		ClientID:          n(s.ClientID),
		Country:           n(s.Country),
		Email:             n(s.Email),
		Phone:             n(s.Phone),
	}
}

// Check verifies that t carries the columns the geographic join needs:
// postal code and city, plus the last name when it is split into parts.
// Other mapped columns may be absent; they are left out of the projection.
func (s Schema) Check(t *table.Table, splitFullName bool) error {
	if err := t.Require(s.PostalCode, s.City); err != nil {
		return err
	}
	if splitFullName {
		return t.Require(s.LastName)
	}
	return nil
}

func (s Schema) validate(splitFullName bool) error {
	if s.PostalCode == "" {
		return &ValidationError{Field: "schema.postal_code", Reason: "required for the geographic join"}
	}
	if s.City == "" {
		return &ValidationError{Field: "schema.city", Reason: "required for the geographic join"}
	}
	if splitFullName && s.LastName == "" {
		return &ValidationError{Field: "schema.last_name", Reason: "required when geo.split_full_name is set"}
	}
	return nil
}
