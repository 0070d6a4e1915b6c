package ledger

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"
)

type csvTable struct {
	file *os.File
	w    *csv.Writer
}

func openCSV(path string) (*csvTable, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open csv %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "ledger: stat csv %s", path)
	}

	t := &csvTable{file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := t.append(Header); err != nil {
			_ = f.Close()
			return nil, eris.Wrap(err, "ledger: write header")
		}
	}
	return t, nil
}

func (t *csvTable) append(cells []string) error {
	if err := t.w.Write(cells); err != nil {
		return eris.Wrap(err, "ledger: write csv record")
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return eris.Wrap(err, "ledger: flush csv")
	}
	return eris.Wrap(t.file.Sync(), "ledger: sync csv")
}

func (t *csvTable) close() error {
	return t.file.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: read csv %s", path)
	}
	return records, nil
}
