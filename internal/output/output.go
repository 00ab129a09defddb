// Package output lays out the destination trees and writes the normalized
// documents into them.
package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/record"
)

// Destination trees created under the parent of a job's dst.
const (
	TreeAI4SH    = "ai4sh"
	TreeXspectre = "xspectre"
	TreeOSSL     = "ossl"
)

var trees = []string{TreeAI4SH, TreeXspectre, TreeOSSL}

// Layout resolves {parent(dst)}/{tree}/{base(dst)} for each tree.
type Layout struct {
	fs     afero.Fs
	root   string
	method string
}

// NewLayout returns the layout for a job destination.
func NewLayout(fs afero.Fs, dst string) *Layout {
	return &Layout{fs: fs, root: filepath.Dir(dst), method: filepath.Base(dst)}
}

// Dir returns the folder of tree.
func (l *Layout) Dir(tree string) string {
	return filepath.Join(l.root, tree, l.method)
}

// Ensure creates the folder of tree.
func (l *Layout) Ensure(tree string) (string, error) {
	dir := l.Dir(tree)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(fmt.Errorf("create output folder: %w", err)).
			Component("output").
			Category(errors.CategoryOutput).
			FileContext(dir).
			Build()
	}
	return dir, nil
}

// Clean removes the job's folder from every tree.
func (l *Layout) Clean() error {
	for _, t := range trees {
		dir := l.Dir(t)
		if err := l.fs.RemoveAll(dir); err != nil {
			return errors.New(fmt.Errorf("remove output folder: %w", err)).
				Component("output").
				Category(errors.CategoryOutput).
				FileContext(dir).
				Build()
		}
	}
	return nil
}

// FileName returns the document name of rec in tree. Xspectre names carry
// the muzzle when the record has one.
func FileName(rec *record.Record, tree string) (string, error) {
	invprep, ok := record.InversePrepCode(rec.SamplePreparation)
	if !ok {
		return "", errors.Newf("no preparation code for %q", rec.SamplePreparation).
			Component("output").
			Category(errors.CategoryValidation).
			Build()
	}
	model, id := rec.Instrument()

	parts := []string{
		rec.SampleID,
		rec.Subsample,
		fmt.Sprint(rec.Replicate),
		rec.Setting,
		invprep,
		dash(model),
		dash(id),
	}
	if tree == TreeXspectre && rec.Muzzle != nil {
		parts = append(parts, rec.Muzzle.Code, rec.Muzzle.Formfactor)
	}
	parts = append(parts, rec.AnalysisDate)
	return strings.Join(parts, "_") + ".json", nil
}

func dash(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

// Writer writes documents as indented JSON.
type Writer struct {
	fs      afero.Fs
	layout  *Layout
	console *logger.Console
}

// NewWriter returns a Writer for layout.
func NewWriter(fs afero.Fs, layout *Layout, console *logger.Console) *Writer {
	return &Writer{fs: fs, layout: layout, console: console}
}

// WriteJSON writes doc for rec into tree and returns the file path.
func (w *Writer) WriteJSON(tree string, rec *record.Record, doc any) (string, error) {
	name, err := FileName(rec, tree)
	if err != nil {
		w.console.Errorf("%s Json post creation failed: %v", tree, err)
		return "", err
	}
	dir, err := w.layout.Ensure(tree)
	if err != nil {
		w.console.Errorf("%s Json post creation failed: %v", tree, err)
		return "", err
	}
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		err = afero.WriteFile(w.fs, path, data, 0o644)
	}
	if err != nil {
		w.console.Errorf("%s Json post creation failed: %s", tree, path)
		return "", errors.New(fmt.Errorf("write %s document: %w", tree, err)).
			Component("output").
			Category(errors.CategoryOutput).
			FileContext(path).
			RecordContext(rec.PilotSite, rec.SampleID).
			Build()
	}
	w.console.Successf("%s Json post created successfully: %s", tree, path)
	return path, nil
}
