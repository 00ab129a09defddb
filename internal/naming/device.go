package naming

import (
	"strconv"
	"strings"

	"github.com/tphakala/soilnorm/internal/record"
)

// Wet chemistry and penetrometer device files, e.g.
// "1R_0-20_tds-iso_tc_9520260_tds-gx16_tds_neretva_20241016_soil-raw".

func neretvaISEpH(in Input) (record.Fields, error) {
	name := in.Stem()
	if !startsWithDigit(name) {
		return nil, unrecognised("%s does not start with a digit", name)
	}
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"instrument_id": "0", "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterSuffixPoint(p[0]); err != nil {
		return nil, err
	}
	method, subsample, ok := strings.Cut(p[3], "-")
	if !ok {
		return nil, invalid("ERROR - method-subsample token not recognised in filename: %s", name)
	}
	f["subsample"] = strings.ToLower(subsample)
	if f["analysis_method__name"], err = labMethod(method, name); err != nil {
		return nil, err
	}
	return f, nil
}

func neretvaGX16EC(in Input) (record.Fields, error) {
	name := in.Stem()
	if !startsWithDigit(name) {
		return nil, unrecognised("%s does not start with a digit", name)
	}
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"instrument_id": "0", "subsample": "a", "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterSuffixPoint(p[0]); err != nil {
		return nil, err
	}
	if f["analysis_method__name"], err = labMethod(p[2], name); err != nil {
		return nil, err
	}
	return f, nil
}

func neretvaPenetrometer(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterSuffixPoint(p[0]); err != nil {
		return nil, err
	}

	instrument, token, ok := strings.Cut(strings.ToLower(p[2]), "-")
	if !ok {
		return nil, invalid("ERROR - instrument-subsample token not recognised in filename: %s", name)
	}
	f["instrument_id"] = instrument
	switch len(token) {
	case 1:
		f["subsample"], f["replicate"] = token, 0
	case 2:
		f["subsample"] = token[:1]
		rep := token[1:]
		if n, err := strconv.Atoi(rep); err == nil {
			f["replicate"] = n - 1
		} else if rep == " " {
			f["replicate"] = 0
		} else {
			f["replicate"] = rep
		}
	default:
		return nil, invalid("ERROR - subsample-replicate code not recognised in filename: %s", name)
	}

	if f["analysis_method__name"], err = labMethod(p[3], name); err != nil {
		return nil, err
	}
	return f, nil
}

func boermarkePenetrometer(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"instrument_id": "0", "subsample": "a", "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	point := boermarkePoint(p[0])
	switch {
	case strings.Contains(point, "extra"):
		point = strings.Replace(point, "extra", "-extra", 1)
	case strings.Contains(point, "xtra"):
		point = strings.Replace(point, "xtra", "-extra", 1)
	}
	f["point_id"] = point
	if _, sub, ok := strings.Cut(p[2], "-"); ok {
		f["subsample"] = strings.ToLower(sub)
	}
	if f["analysis_method__name"], err = labMethod(p[3], name); err != nil {
		return nil, err
	}
	return f, nil
}

func zazariPenetrometer(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 6)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"instrument_id": p[5], "subsample": p[2], "replicate": 0}
	switch strings.ToLower(p[1]) {
	case "top", "sub":
		err = setDepth(f, p[1])
	case "post-infiltration":
		err = setDepth(f, p[1])
		f["sample_preparation__name"] = "post-infiltration"
	default:
		err = invalid("ERROR - depth interval not recognised in filename: %s", name)
	}
	if err != nil {
		return nil, err
	}

	point := p[0]
	if len(point) == 1 {
		point = "0" + point
	}
	if pt, setting, ok := strings.Cut(point, "-"); ok {
		point = pt
		f["setting"] = setting
	}
	f["point_id"] = strings.ReplaceAll(point, " ", "")

	if f["analysis_method__name"], err = labMethod(p[3], name); err != nil {
		return nil, err
	}
	return f, nil
}

func jokioinenPenetrometer(in Input) (record.Fields, error) {
	name := in.Stem()
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"subsample": "a", "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterSuffixPoint(p[0]); err != nil {
		return nil, err
	}
	instrument, sub, ok := strings.Cut(strings.ToLower(p[2]), "-")
	f["instrument_id"] = instrument
	if ok {
		f["subsample"] = sub
	}
	if f["analysis_method__name"], err = labMethod(p[3], name); err != nil {
		return nil, err
	}
	return f, nil
}

func jokioinenISEpH(in Input) (record.Fields, error) {
	name := in.Stem()
	if strings.HasPrefix(strings.ToLower(name), "ref") {
		return nil, unrecognised("%s is a reference file", name)
	}
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"instrument_id": "0", "subsample": "a", "replicate": 0}
	if err := setDepth(f, p[1]); err != nil {
		return nil, err
	}
	if f["point_id"], err = letterSuffixPoint(p[0]); err != nil {
		return nil, err
	}
	method, sub, ok := strings.Cut(p[3], "-")
	if !ok {
		return nil, invalid("ERROR - method-subsample token not recognised in filename: %s", name)
	}
	f["subsample"] = strings.ToLower(sub)
	// The preparation code doubles as the method prefix.
	prep := strings.ToLower(p[2])
	f["sample_preparation__name"] = prep
	if f["analysis_method__name"], err = labMethod(prep+"-"+method, name); err != nil {
		return nil, err
	}
	return f, nil
}

func jokioinenGX16EC(in Input) (record.Fields, error) {
	return neretvaGX16EC(in)
}
