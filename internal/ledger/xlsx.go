package ledger

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet created for new workbooks.
const SheetName = "Carriers"

type xlsxTable struct {
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
}

func openXLSX(path string) (*xlsxTable, error) {
	t := &xlsxTable{path: path}

	if _, err := os.Stat(path); err == nil {
		f, err := xlsx.OpenFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: open workbook %s", path)
		}
		t.file = f
		if s, ok := f.Sheet[SheetName]; ok {
			t.sheet = s
		} else if len(f.Sheets) > 0 {
			t.sheet = f.Sheets[0]
		}
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "ledger: stat %s", path)
	} else {
		t.file = xlsx.NewFile()
	}

	if t.sheet == nil {
		s, err := t.file.AddSheet(SheetName)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: add sheet")
		}
		t.sheet = s
	}

	if len(t.sheet.Rows) == 0 {
		if err := t.append(Header); err != nil {
			return nil, eris.Wrap(err, "ledger: write header")
		}
	}
	return t, nil
}

func (t *xlsxTable) append(cells []string) error {
	n := len(t.sheet.Rows)
	maxRow := t.sheet.MaxRow

	row := t.sheet.AddRow()
	for i, v := range cells {
		cell := row.AddCell()
		if i == 0 {
			if id, err := strconv.Atoi(v); err == nil {
				cell.SetInt(id)
				continue
			}
		}
		cell.SetString(v)
	}

	if err := t.save(); err != nil {
		// Keep memory in step with disk so the row is not resurrected by
		// the next successful save.
		t.sheet.Rows = t.sheet.Rows[:n]
		t.sheet.MaxRow = maxRow
		return err
	}
	return nil
}

// save writes the workbook to a temp file in the same directory, syncs it,
// and renames it over the original.
func (t *xlsxTable) save() error {
	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "ledger: create temp workbook")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := t.file.Write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "ledger: write workbook")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "ledger: sync workbook")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrap(err, "ledger: close temp workbook")
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		cleanup()
		return eris.Wrap(err, "ledger: replace workbook")
	}
	return nil
}

func (t *xlsxTable) close() error { return nil }

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open workbook %s", path)
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, nil
		}
		sheet = f.Sheets[0]
	}

	out := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		out = append(out, cells)
	}
	return out, nil
}
