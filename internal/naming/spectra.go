package naming

import (
	"strings"

	"github.com/tphakala/soilnorm/internal/record"
)

// Handheld spectrometer files, e.g.
// "256_C5_0-20_C_c12880ma_raw-spectra_foulum_20241106_soil". The serial,
// muzzle and scan date come from the file body, not the name.

func jokioinenSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	if !startsWithDigit(name) {
		return nil, unrecognised("%s does not start with a digit", name)
	}
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{
		"point_id":  strings.ToLower(p[0] + "-" + p[1]),
		"subsample": strings.ToLower(p[3]),
		"replicate": 0,
	}
	if err := setDepth(f, p[2]); err != nil {
		return nil, err
	}
	return f, nil
}

func neretvaSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	if !strings.HasPrefix(name, "R") {
		return nil, unrecognised("%s does not start with R", name)
	}
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"subsample": strings.ToLower(p[2]), "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterPrefixPoint(p[0]); err != nil {
		return nil, err
	}
	return f, nil
}

func foulumSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	if !startsWithDigit(name) {
		return nil, unrecognised("%s does not start with a digit", name)
	}
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}

	f := record.Fields{"replicate": 0}
	var depth string
	if len(p[1]) == 1 && startsWithDigit(p[1]) {
		// 366_2_C5_COMPSUB_12_A
		if len(p) < 6 {
			return nil, unrecognised("expected 6 parts in %q", name)
		}
		f["point_id"] = strings.ToLower(p[0] + "-" + p[1] + "-" + p[2])
		depth = p[3]
		f["subsample"] = strings.ToLower(p[5])
	} else {
		f["point_id"] = strings.ToLower(p[0] + "-" + p[1])
		depth = p[2]
		f["subsample"] = strings.ToLower(p[3])
	}
	if err := setDepth(f, depth); err != nil {
		return nil, err
	}

	// Mixed and dried samples were scanned into separate campaign folders.
	switch upper := strings.ToUpper(in.Path); {
	case strings.Contains(upper, "DK-AI4SH-2024-MX"):
		f["sample_preparation__name"] = "mx-lab"
	case strings.Contains(upper, "DK-AI4SH-2024-DS"):
		f["sample_preparation__name"] = "ds"
	default:
		return nil, invalid("ERROR - sample preparation not recognised from path: %s", in.Path)
	}
	return f, nil
}

func loennstorpSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	if !startsWithDigit(name) {
		return nil, unrecognised("%s does not start with a digit", name)
	}
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"replicate": 0}
	switch strings.ToLower(p[1]) {
	case "sand", "organic":
		if len(p) < 4 {
			return nil, unrecognised("expected 4 parts in %q", name)
		}
		f["point_id"] = strings.ToLower(p[0][len(p[0])-1:] + "-" + p[1])
		f["subsample"] = strings.ToLower(p[3])
		err = setDepth(f, p[2])
	default:
		if f["point_id"], err = loennstorpPoint(p[0], name); err != nil {
			return nil, err
		}
		f["subsample"] = strings.ToLower(p[2])
		err = setDepth(f, p[1])
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func munsoeSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	p := strings.Split(name, "_")
	if len(p[0]) > 5 {
		p = strings.Split(p[0], "-")
	}
	if len(p) < 3 || p[0] == "" {
		return nil, unrecognised("expected at least 3 parts in %q", name)
	}
	if !startsWithDigit(p[0]) {
		p[0] = p[0][1:] + p[0][:1]
	}
	f := record.Fields{"point_id": strings.ToLower(p[0] + "-" + p[1]), "replicate": "a"}
	switch strings.ToLower(p[2]) {
	case "d1", "d2":
		if err := setDepth(f, p[2]); err != nil {
			return nil, err
		}
	default:
		return nil, invalid("ERROR - depth code not recognised in filename: %s", name)
	}
	if len(p) > 3 {
		switch r := strings.ToLower(p[3]); r {
		case "a", "b", "c":
			f["replicate"] = r
		}
	}
	return f, nil
}

func loennstorpSafeSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 5)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"subsample": "a"}
	if !strings.Contains(p[3], "-") {
		return nil, invalid("ERROR - invalid depth format in file name %s", name)
	}
	if err := setDepth(f, p[3]); err != nil {
		return nil, err
	}
	base := strings.ToLower(p[0] + "-" + p[1] + "-" + p[2])
	if isDigits(p[4]) {
		if len(p) < 6 {
			return nil, unrecognised("expected 6 parts in %q", name)
		}
		f["point_id"] = base + "_" + p[4]
		f["replicate"] = strings.ToLower(p[5])
	} else {
		f["point_id"] = base
		f["replicate"] = strings.ToLower(p[4])
	}
	return f, nil
}

func julitaSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	first, _, _ := strings.Cut(name, "_")
	items := strings.Split(first, "-")
	f := record.Fields{"min_depth": "0", "max_depth": "20", "subsample": "a"}
	var point string
	switch len(items) {
	case 1:
		return nil, invalid("ERROR - invalid point_id format in file name %s", name)
	case 2:
		point, f["replicate"] = items[0], items[1]
	default:
		point, f["replicate"] = items[0]+"-"+items[1], items[2]
	}
	f["point_id"] = foldJulita(point)
	return f, nil
}

func tovetorpSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	first, _, _ := strings.Cut(name, "_")
	items := strings.Split(first, "-")
	if len(items) < 3 {
		return nil, invalid("ERROR - invalid point-depth format in file name %s", name)
	}
	f := record.Fields{
		"point_id":  strings.ToLower(items[0]),
		"min_depth": items[1],
		"max_depth": items[2],
		"replicate": "0",
		"subsample": "a",
	}
	if len(items) > 3 {
		f["replicate"] = items[3]
	}
	return f, nil
}

func boermarkeSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 5)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"subsample": strings.ToLower(p[4]), "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	point := boermarkePoint(p[0])
	if strings.HasSuffix(point, "extra") {
		point = strings.Replace(point, "extra", "", 1) + "-extra"
	}
	f["point_id"] = point
	return f, nil
}

func zazariSpectra(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"subsample": strings.ToLower(p[2]), "replicate": 0}
	switch strings.ToLower(p[1]) {
	case "top", "sub":
		if err := setDepth(f, p[1]); err != nil {
			return nil, err
		}
	default:
		return nil, invalid("ERROR - invalid depth format for zazari in file name %s", name)
	}
	f["point_id"] = strings.ToLower(strings.NewReplacer(" ", "-", "_", "-").Replace(p[0]))
	return f, nil
}
