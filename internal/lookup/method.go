// Package lookup loads the side tables a job needs before any record is
// normalized: the method definition table and the coordinate table.
package lookup

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
)

// None is the value stored for a null-like cell. Distill drops it.
const None = "none"

// Unknown is used when the optional equipment_model or equipment_id
// column is absent.
const Unknown = "unknown"

var requiredMethodColumns = []string{"header", "parameter", "unit", "method", "equipment"}

// MethodTable maps each data-file column header to its canonical
// parameter, unit, method, equipment and instrument identity.
type MethodTable struct {
	Parameter      map[string]string
	Unit           map[string]string
	Method         map[string]string
	Equipment      map[string]string
	EquipmentModel map[string]string
	EquipmentID    map[string]string

	// Headers keeps the definition order.
	Headers []string
	Source  string
}

// LoadMethodTable reads a method definition CSV.
func LoadMethodTable(fs afero.Fs, path string) (*MethodTable, error) {
	t, err := ReadTable(fs, path)
	if err != nil {
		return nil, errors.SetupError(err, "lookup")
	}
	mt, err := NewMethodTable(t)
	if err != nil {
		return nil, err
	}
	mt.Source = path
	return mt, nil
}

// NewMethodTable builds a MethodTable from a parsed CSV.
func NewMethodTable(t *Table) (*MethodTable, error) {
	idx := make(map[string]int, len(requiredMethodColumns)+2)
	for _, col := range requiredMethodColumns {
		i := t.Column(col)
		if i < 0 {
			return nil, errors.SetupError(
				fmt.Errorf("method table is missing the %q column, found %v", col, t.Header), "lookup")
		}
		idx[col] = i
	}
	for _, col := range []string{"equipment_model", "equipment_id"} {
		idx[col] = t.Column(col)
	}

	mt := &MethodTable{
		Parameter:      make(map[string]string, len(t.Rows)),
		Unit:           make(map[string]string, len(t.Rows)),
		Method:         make(map[string]string, len(t.Rows)),
		Equipment:      make(map[string]string, len(t.Rows)),
		EquipmentModel: make(map[string]string, len(t.Rows)),
		EquipmentID:    make(map[string]string, len(t.Rows)),
	}

	cell := func(row []string, col string) string {
		i := idx[col]
		if i < 0 {
			return Unknown
		}
		if IsNullLike(row[i]) {
			return None
		}
		return NormalizeKey(row[i])
	}

	for _, row := range t.Rows {
		header := NormalizeKey(row[idx["header"]])
		if header == "" {
			continue
		}
		if _, dup := mt.Parameter[header]; !dup {
			mt.Headers = append(mt.Headers, header)
		}
		mt.Parameter[header] = cell(row, "parameter")
		mt.Unit[header] = cell(row, "unit")
		mt.Method[header] = cell(row, "method")
		mt.Equipment[header] = cell(row, "equipment")
		mt.EquipmentModel[header] = cell(row, "equipment_model")
		mt.EquipmentID[header] = cell(row, "equipment_id")
	}

	return mt, nil
}

// MissingHeaderError reports a data-file column the method table does not
// define.
type MissingHeaderError struct {
	Header string
	Source string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("ERROR - parameter <%s> is missing in the header dictionary", e.Header)
}

// Distill keeps only the entries for the given data-file headers. Every
// header must be defined; entries valued None are dropped per map.
func (mt *MethodTable) Distill(header []string) (*MethodTable, error) {
	out := &MethodTable{
		Parameter:      map[string]string{},
		Unit:           map[string]string{},
		Method:         map[string]string{},
		Equipment:      map[string]string{},
		EquipmentModel: map[string]string{},
		EquipmentID:    map[string]string{},
		Source:         mt.Source,
	}

	pairs := []struct{ src, dst map[string]string }{
		{mt.Parameter, out.Parameter},
		{mt.Unit, out.Unit},
		{mt.Method, out.Method},
		{mt.Equipment, out.Equipment},
		{mt.EquipmentModel, out.EquipmentModel},
		{mt.EquipmentID, out.EquipmentID},
	}

	for _, h := range header {
		key := NormalizeKey(h)
		if _, ok := mt.Parameter[key]; !ok {
			return nil, errors.New(&MissingHeaderError{Header: key, Source: mt.Source}).
				Component("lookup").
				Category(errors.CategoryJobSetup).
				Context("method_src", mt.Source).
				Build()
		}
		out.Headers = append(out.Headers, key)
		for _, p := range pairs {
			if v := p.src[key]; v != None {
				p.dst[key] = v
			}
		}
	}

	return out, nil
}

// ConsistencyError names the first key found in one of the method,
// equipment or unit maps but absent from another.
type ConsistencyError struct {
	Key         string
	MissingFrom string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ERROR - %s <%s> is missing in the parameter dictionary", e.MissingFrom, e.Key)
}

// CheckConsistency verifies method, equipment and unit share one key set.
// The checks run method against equipment, equipment against unit, then
// unit against method, and stop at the first violation.
func CheckConsistency(method, equipment, unit map[string]string) error {
	checks := []struct {
		from    map[string]string
		against map[string]string
		name    string
	}{
		{method, equipment, "equipment"},
		{equipment, unit, "unit"},
		{unit, method, "method"},
	}

	for _, c := range checks {
		for _, key := range slices.Sorted(maps.Keys(c.from)) {
			if _, ok := c.against[key]; !ok {
				return errors.New(&ConsistencyError{Key: key, MissingFrom: c.name}).
					Component("lookup").
					Category(errors.CategoryJobSetup).
					Build()
			}
		}
	}
	return nil
}

// CheckConsistency runs the package level check on the table's maps.
func (mt *MethodTable) CheckConsistency() error {
	return CheckConsistency(mt.Method, mt.Equipment, mt.Unit)
}

// SingleEquipment returns the one equipment shared by every column. A data
// file mixing equipment is a setup error.
func (mt *MethodTable) SingleEquipment() (string, error) {
	set := make(map[string]struct{})
	for _, v := range mt.Equipment {
		set[v] = struct{}{}
	}
	if len(set) != 1 {
		return "", errors.Newf("ERROR - each record can only have a singular equipment, found %v",
			slices.Sorted(maps.Keys(set))).
			Component("lookup").
			Category(errors.CategoryJobSetup).
			Build()
	}
	for v := range set {
		return v, nil
	}
	return "", nil
}
