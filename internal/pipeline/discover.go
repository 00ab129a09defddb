package pipeline

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/device"
	"github.com/tphakala/soilnorm/internal/errors"
)

// Extension returns the input file extension of a job format.
func Extension(format string) string {
	if format == conf.FormatXspectreJSON {
		return ".json"
	}
	return ".csv"
}

// Inputs are the files a job reads.
type Inputs struct {
	Data            []string
	WhiteReferences []string
}

// Discover lists the inputs under src. A file src is used as is. A directory
// is walked; hidden files and folders are skipped and paths come back sorted.
// White reference scans are listed apart from the data files.
func Discover(fs afero.Fs, src, format string) (*Inputs, error) {
	info, err := fs.Stat(src)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryJobSetup).
			FileContext(src).
			Build()
	}

	in := &Inputs{}
	if !info.IsDir() {
		in.add(src, format)
		return in, nil
	}

	ext := Extension(format)
	err = afero.Walk(fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(fi.Name(), ".")
		if fi.IsDir() {
			if hidden && path != src {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		in.add(path, format)
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryJobSetup).
			FileContext(src).
			Build()
	}

	slices.Sort(in.Data)
	slices.Sort(in.WhiteReferences)
	return in, nil
}

func (in *Inputs) add(path, format string) {
	if format == conf.FormatXspectreJSON && device.IsWhiteReference(path) {
		in.WhiteReferences = append(in.WhiteReferences, path)
		return
	}
	in.Data = append(in.Data, path)
}
