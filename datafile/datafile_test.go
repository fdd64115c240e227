package datafile

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const matrix1 = "# covariates\n1\t0.5\n1\t-2\n1\t3e-1\n"

func gzipped(tst *testing.T, s string) []byte {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write([]byte(s)); err != nil {
		tst.Fatal(err)
	}
	if err := w.Close(); err != nil {
		tst.Fatal(err)
	}
	return b.Bytes()
}

func zstded(tst *testing.T, s string) []byte {
	var b bytes.Buffer
	w, err := zstd.NewWriter(&b)
	if err != nil {
		tst.Fatal(err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		tst.Fatal(err)
	}
	if err := w.Close(); err != nil {
		tst.Fatal(err)
	}
	return b.Bytes()
}

func TestDecompress(tst *testing.T) {
	inputs := map[string][]byte{
		"plain": []byte(matrix1),
		"gzip":  gzipped(tst, matrix1),
		"zstd":  zstded(tst, matrix1),
	}
	for name, data := range inputs {
		r, err := Decompress(ioutil.NopCloser(bytes.NewReader(data)))
		if err != nil {
			tst.Error(name, "error:", err)
			continue
		}
		got, err := io.ReadAll(r)
		if err != nil {
			tst.Error(name, "read error:", err)
		}
		if string(got) != matrix1 {
			tst.Errorf("%s: got %q", name, got)
		}
		if err := r.Close(); err != nil {
			tst.Error(name, "close error:", err)
		}
	}
}

func TestDecompressShort(tst *testing.T) {
	r, err := Decompress(ioutil.NopCloser(strings.NewReader("7")))
	if err != nil {
		tst.Fatal("Error on a short stream:", err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "7" {
		tst.Errorf("got %q", got)
	}
}

func TestReadMatrix(tst *testing.T) {
	m, err := ReadMatrix(strings.NewReader(matrix1))
	if err != nil {
		tst.Fatal(err)
	}
	r, c := m.Dims()
	if r != 3 || c != 2 {
		tst.Fatalf("Wrong dimensions %dx%d", r, c)
	}
	if m.At(1, 1) != -2 || m.At(2, 1) != 0.3 {
		tst.Error("Wrong values", m.RawMatrix().Data)
	}

	var b bytes.Buffer
	if err := WriteMatrix(&b, m); err != nil {
		tst.Fatal(err)
	}
	m2, err := ReadMatrix(&b)
	if err != nil {
		tst.Fatal(err)
	}
	if m2.At(2, 1) != 0.3 || m2.At(0, 0) != 1 {
		tst.Error("Written matrix differs")
	}

	if _, err := ReadMatrix(strings.NewReader("1\t2\n3\n")); err == nil {
		tst.Error("Ragged matrix was accepted")
	}
	if _, err := ReadMatrix(strings.NewReader("1\tx\n")); err == nil {
		tst.Error("Non-numeric matrix was accepted")
	}
	if _, err := ReadMatrix(strings.NewReader("# nothing\n")); err == nil {
		tst.Error("Empty matrix was accepted")
	}
}

func TestReadInts(tst *testing.T) {
	v, err := ReadInts(strings.NewReader("3\n\n12.0\n# c\n7\n"))
	if err != nil {
		tst.Fatal(err)
	}
	if len(v) != 3 || v[0] != 3 || v[1] != 12 || v[2] != 7 {
		tst.Error("Wrong values:", v)
	}
	if _, err := ReadInts(strings.NewReader("1.5\n")); err == nil {
		tst.Error("Fractional index was accepted")
	}
}

func TestOpenFile(tst *testing.T) {
	dir := tst.TempDir()
	fn := filepath.Join(dir, "m.tsv.gz")
	if err := os.WriteFile(fn, gzipped(tst, matrix1), 0644); err != nil {
		tst.Fatal(err)
	}
	m, err := ReadMatrixFile(fn)
	if err != nil {
		tst.Fatal(err)
	}
	if r, _ := m.Dims(); r != 3 {
		tst.Error("Wrong number of rows:", r)
	}
	if _, err := Open(filepath.Join(dir, "missing")); err == nil {
		tst.Error("Missing file opened")
	}
	if _, err := Open("gs://bucket-only"); err == nil {
		tst.Error("Invalid storage path accepted")
	}
}

func TestExpandChr(tst *testing.T) {
	if ExpandChr("geno/chr@.txt.gz", 12) != "geno/chr12.txt.gz" {
		tst.Error("Wrong expansion:", ExpandChr("geno/chr@.txt.gz", 12))
	}
	if ExpandChr("plain", 1) != "plain" {
		tst.Error("Pattern without placeholder changed")
	}
}

func TestJoin(tst *testing.T) {
	settings := []struct {
		dir, name, exp string
	}{
		{"gs://bucket/model/", "covar.tsv", "gs://bucket/model/covar.tsv"},
		{"gs://bucket/model", "covar.tsv", "gs://bucket/model/covar.tsv"},
		{"model", "bases.tsv", "model/bases.tsv"},
		{"", "bases.tsv", "bases.tsv"},
	}
	for _, s := range settings {
		if r := Join(s.dir, s.name); r != s.exp {
			tst.Errorf("Join(%q, %q) = %q, expected %q", s.dir, s.name, r, s.exp)
		}
	}
}

func TestOpenerClose(tst *testing.T) {
	o := NewOpener(nil)
	fn := filepath.Join(tst.TempDir(), "plain.txt")
	if err := ioutil.WriteFile(fn, []byte("1\n"), 0644); err != nil {
		tst.Fatal(err)
	}
	rc, err := o.Open(fn)
	if err != nil {
		tst.Fatal("Error opening:", err)
	}
	rc.Close()
	// no storage client for local files
	if o.client != nil {
		tst.Error("Storage client created for a local file")
	}
	for i := 0; i < 2; i++ {
		if err := o.Close(); err != nil {
			tst.Error("Error closing opener:", err)
		}
	}
	if err := Close(); err != nil {
		tst.Error("Error closing default opener:", err)
	}
}
