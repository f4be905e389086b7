// Package dataset loads the semicolon-delimited bank marketing records into
// an immutable-by-convention column table and encodes them into gonum
// matrices for model training. Columns are always addressed by name and
// validated against the schema, never by position.
package dataset

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
	"github.com/YuminosukeSato/bankmark/preprocessing"
)

// ColumnKind distinguishes numeric from categorical columns.
type ColumnKind int

const (
	// Numeric columns parse fully as float64.
	Numeric ColumnKind = iota
	// Categorical columns hold string tokens.
	Categorical
)

// Column is a single named, typed column.
type Column struct {
	Name string
	Kind ColumnKind
	Nums []float64 // set when Kind == Numeric
	Cats []string  // set when Kind == Categorical
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Cats)
}

// Table is a rectangular set of named columns.
type Table struct {
	cols  []Column
	index map[string]int
}

func newTable(cols []Column) *Table {
	t := &Table{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		t.index[c.Name] = i
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, failing if the name is not in the
// schema.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NewDataShapeErrorf("Table.Column", "unknown column %q", name)
	}
	return &t.cols[i], nil
}

// Rename renames columns according to the old->new mapping. Every old name
// must exist and no new name may collide with a remaining column.
func (t *Table) Rename(mapping map[string]string) error {
	for old := range mapping {
		if _, ok := t.index[old]; !ok {
			return errors.NewDataShapeErrorf("Table.Rename", "unknown column %q", old)
		}
	}
	for old, next := range mapping {
		if i, ok := t.index[next]; ok && t.cols[i].Name != old {
			return errors.NewDataShapeErrorf("Table.Rename", "column %q already exists", next)
		}
	}
	for old, next := range mapping {
		i := t.index[old]
		delete(t.index, old)
		t.cols[i].Name = next
		t.index[next] = i
	}
	return nil
}

// Drop removes the named columns. Unknown names fail the call before any
// column is removed.
func (t *Table) Drop(names ...string) error {
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			return errors.NewDataShapeErrorf("Table.Drop", "unknown column %q", name)
		}
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	kept := make([]Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, gone := drop[c.Name]; !gone {
			kept = append(kept, c)
		}
	}
	t.cols = kept
	t.index = make(map[string]int, len(kept))
	for i, c := range kept {
		t.index[c.Name] = i
	}
	return nil
}

// Features encodes the table into a feature matrix and binary label vector.
// Numeric columns pass through; categorical columns one-hot expand in
// sorted category order. The target column must hold exactly two distinct
// values; rows matching positive map to 1, the rest to 0. Returned feature
// names align with X's columns ("col" or "col=category").
func (t *Table) Features(target, positive string) (X *mat.Dense, y *mat.VecDense, names []string, err error) {
	tgt, err := t.Column(target)
	if err != nil {
		return nil, nil, nil, err
	}

	y, err = encodeLabel(tgt, positive)
	if err != nil {
		return nil, nil, nil, err
	}

	n := t.NumRows()
	var blocks []*mat.Dense
	for _, c := range t.cols {
		if c.Name == target {
			continue
		}
		switch c.Kind {
		case Numeric:
			block := mat.NewDense(n, 1, nil)
			for i, v := range c.Nums {
				block.Set(i, 0, v)
			}
			blocks = append(blocks, block)
			names = append(names, c.Name)
		case Categorical:
			enc := preprocessing.NewOneHotEncoder()
			block, encErr := enc.FitTransform(c.Cats)
			if encErr != nil {
				return nil, nil, nil, encErr
			}
			blocks = append(blocks, block)
			names = append(names, enc.FeatureNames(c.Name)...)
		}
	}
	if len(blocks) == 0 {
		return nil, nil, nil, errors.NewDataShapeErrorf("Table.Features", "no feature columns besides target %q", target)
	}

	X = mat.NewDense(n, len(names), nil)
	col := 0
	for _, block := range blocks {
		_, bc := block.Dims()
		for j := 0; j < bc; j++ {
			for i := 0; i < n; i++ {
				X.Set(i, col, block.At(i, j))
			}
			col++
		}
	}
	return X, y, names, nil
}

func encodeLabel(tgt *Column, positive string) (*mat.VecDense, error) {
	distinct := make(map[string]struct{})
	values := make([]string, tgt.Len())
	switch tgt.Kind {
	case Categorical:
		copy(values, tgt.Cats)
	case Numeric:
		for i, v := range tgt.Nums {
			values[i] = formatNum(v)
		}
	}
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	if len(distinct) != 2 {
		domain := make([]string, 0, len(distinct))
		for v := range distinct {
			domain = append(domain, v)
		}
		return nil, errors.NewInvalidLabelCardinalityError("Table.Features", domain)
	}
	if _, ok := distinct[positive]; !ok {
		return nil, errors.NewValueError("Table.Features", "positive label "+positive+" not present in target column")
	}

	y := mat.NewVecDense(len(values), nil)
	for i, v := range values {
		if v == positive {
			y.SetVec(i, 1)
		}
	}
	return y, nil
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
