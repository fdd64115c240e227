package nullmodel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
)

// LOCO reads leave-one-chromosome-out predictions, one subjects x LDRs
// file per chromosome.
type LOCO struct {
	// Pattern is the file path with '@' standing for the chromosome.
	Pattern string
	// NLDRs is the number of leading LDRs to keep, 0 keeps all.
	NLDRs int
}

// Read returns the predictions for chromosome chr.
func (l *LOCO) Read(chr int) (*mat.Dense, error) {
	fn := datafile.ExpandChr(l.Pattern, chr)
	d, err := datafile.ReadMatrixFile(fn)
	if err != nil {
		return nil, err
	}
	if _, c := d.Dims(); l.NLDRs > 0 && l.NLDRs < c {
		d = firstCols(d, l.NLDRs)
	}
	log.Debugf("chr%d: LOCO predictions read from %s", chr, fn)
	return d, nil
}
