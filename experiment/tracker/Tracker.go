// Package tracker implements tracking of per-step training statistics
// and saving them to disk
package tracker

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Sheet is the name of the worksheet written by SaveXLSX
const Sheet = "Stats"

// Record is a single row of named statistics
type Record interface {
	Fields() []string
	Values() []float64
}

// Data holds tracked statistics, one row per tracked record
type Data struct {
	Fields []string
	Rows   [][]float64
}

// Column returns the values of the named field, or nil if no such field
// was tracked
func (d Data) Column(field string) []float64 {
	col := -1
	for i, f := range d.Fields {
		if f == field {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}

	values := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[col]
	}
	return values
}

// Tracker keeps track of training statistics and saves them after
// training has finished
type Tracker struct {
	filename string
	data     Data
}

// New returns a new Tracker which will save its data at the specified
// location filename
func New(filename string) *Tracker {
	return &Tracker{filename: filename}
}

// Track caches a record. Every record tracked must have the same
// fields as the first.
func (t *Tracker) Track(r Record) error {
	fields, values := r.Fields(), r.Values()
	if len(fields) != len(values) {
		return errors.Errorf("track: %v fields but %v values", len(fields),
			len(values))
	}

	if t.data.Fields == nil {
		t.data.Fields = append([]string(nil), fields...)
	} else if len(fields) != len(t.data.Fields) {
		return errors.Errorf("track: expected %v fields, have %v",
			len(t.data.Fields), len(fields))
	}

	t.data.Rows = append(t.data.Rows, append([]float64(nil), values...))
	return nil
}

// Data returns the tracked data
func (t *Tracker) Data() Data {
	return t.data
}

// Len returns the number of tracked records
func (t *Tracker) Len() int {
	return len(t.data.Rows)
}

// Save gob-encodes the tracked data to the Tracker's file
func (t *Tracker) Save() error {
	if err := mkdir(t.filename); err != nil {
		return errors.Wrap(err, "save")
	}
	file, err := os.Create(t.filename)
	if err != nil {
		return errors.Wrap(err, "save: could not open save file")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(t.data); err != nil {
		return errors.Wrap(err, "save: could not encode data")
	}
	return nil
}

// SaveXLSX writes the tracked data to a workbook with a header row of
// field names followed by one row per tracked record
func (t *Tracker) SaveXLSX(filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(Sheet); err != nil {
		return errors.Wrap(err, "saveXLSX")
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "saveXLSX")
	}

	header := make([]interface{}, len(t.data.Fields))
	for i, field := range t.data.Fields {
		header[i] = field
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "saveXLSX: could not write header")
	}

	for i, row := range t.data.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "saveXLSX")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(Sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "saveXLSX: could not write row %v", i)
		}
	}

	if err := mkdir(filename); err != nil {
		return errors.Wrap(err, "saveXLSX")
	}
	if err := f.SaveAs(filename); err != nil {
		return errors.Wrap(err, "saveXLSX")
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) (Data, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Data{}, errors.Wrap(err, "loadData: could not open data file")
	}
	defer file.Close()

	var data Data
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return Data{}, errors.Wrap(err, "loadData: could not decode data")
	}
	return data, nil
}

func mkdir(filename string) error {
	return os.MkdirAll(filepath.Dir(filename), 0755)
}
