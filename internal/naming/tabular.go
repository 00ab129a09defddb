package naming

import (
	"strconv"
	"strings"

	"github.com/tphakala/soilnorm/internal/record"
)

// Column names of spectrometer exports after header cleaning.
const (
	ColSampleID   = "sample_id"
	ColSampleName = "sample name"
	ColCreatedAt  = "created at (utc)"
	ColDeviceID   = "device id"
)

// ktimaPrep lists the preparation codes used in Ktima sample names.
var ktimaPrep = map[string]string{"ds": "ds", "mx": "mx", "no": "no", "n0": "no", "cu": "cu"}

func sampleField(in Input, col string) (string, error) {
	s := strings.ReplaceAll(in.Fields.String(col), " ", "")
	if s == "" {
		return "", invalid("ERROR - column <%s> is empty or missing", col)
	}
	return s, nil
}

// analysisDate reads the YYYYMMDD date from an ISO timestamp column.
func analysisDate(in Input) string {
	ts := in.Fields.String(ColCreatedAt)
	if len(ts) > 10 {
		ts = ts[:10]
	}
	return strings.ReplaceAll(ts, "-", "")
}

func topOrSub(f record.Fields, token, name string) error {
	switch strings.ToLower(token) {
	case "top", "sub":
		return setDepth(f, token)
	}
	return invalid("ERROR - unrecognised top/sub indicator in sample name: %s", name)
}

func topsoilOrSubsoil(f record.Fields, token, name string) error {
	switch strings.ToLower(token) {
	case "t", "s":
		return setDepth(f, token)
	}
	return invalid("ERROR - depth code not recognised in sample name: %s", name)
}

// ktimaSampleName parses "KG-012-DS-T_a" or "KG-012-DS-2-T_a", the
// optional fourth item being the replicate.
func ktimaSampleName(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleName)
	if err != nil {
		return nil, err
	}
	head, sub, ok := strings.Cut(name, "_")
	if !ok || strings.Contains(sub, "_") {
		return nil, invalid("ERROR - sample name not recognised: %s", name)
	}
	items := strings.Split(head, "-")
	if len(items) != 4 && len(items) != 5 {
		return nil, invalid("ERROR - sample name not recognised: %s", name)
	}

	f := record.Fields{"subsample": sub, "replicate": 0}
	if len(items) == 5 {
		rep, err := strconv.Atoi(items[3])
		if err != nil {
			return nil, invalid("ERROR - replicate not recognised in sample name: %s", name)
		}
		f["replicate"] = rep
		items[3] = items[4]
	}
	if err := topsoilOrSubsoil(f, items[3], name); err != nil {
		return nil, err
	}
	prep, ok := ktimaPrep[strings.ToLower(items[2])]
	if !ok {
		return nil, invalid("ERROR - sample preparation code not recognised in sample name: %s", name)
	}
	f["sample_preparation__name"] = prep
	f["point_id"] = strings.ToLower(items[1])
	f["sample_analysis_date"] = analysisDate(in)
	if in.Fields.Has(ColDeviceID) {
		f["instrument_id"] = in.Fields.String(ColDeviceID)
	}
	return f, nil
}

// ktimaWetlab parses "<point>_<t|s>".
func ktimaWetlab(in Input) (record.Fields, error) {
	name := in.Fields.String(ColSampleID)
	point, code, ok := strings.Cut(name, "_")
	if !ok || strings.Contains(code, "_") {
		return nil, invalid("ERROR - depth code not recognised from sample name: %s", name)
	}
	f := record.Fields{"point_id": point}
	if err := topsoilOrSubsoil(f, code, name); err != nil {
		return nil, err
	}
	return f, nil
}

// DS2500 exports carry the sample name in the sample_id column.

func foulumDS2500(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleID)
	if err != nil {
		return nil, err
	}
	p, err := parts(name, 4)
	if err != nil {
		return nil, err
	}
	f := record.Fields{
		"point_id":                 strings.ToLower(p[0] + "-" + p[1]),
		"replicate":                strings.ToLower(p[len(p)-2]),
		"sample_preparation__name": strings.ToLower(p[len(p)-3]),
		"subsample":                "a",
	}
	if err := topsoilOrSubsoil(f, p[len(p)-1], name); err != nil {
		return nil, err
	}
	return f, nil
}

func neretvaDS2500(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleID)
	if err != nil {
		return nil, err
	}
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"point_id": strings.ToLower(p[1] + "-" + p[0]), "replicate": "0", "subsample": "a"}
	if err := setDepth(f, p[2]); err != nil {
		return nil, err
	}
	return f, nil
}

func boermarkeDS2500(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleID)
	if err != nil {
		return nil, err
	}
	p := strings.Split(name, "_")
	var point string
	switch len(p) {
	case 5:
		point = p[1]
	case 6:
		point = p[1] + "-" + p[2]
	case 7:
		point = p[1] + "-" + p[2] + "-" + p[3]
	default:
		return nil, invalid("ERROR - sample name not recognised: %s", name)
	}
	f := record.Fields{
		"point_id":                 strings.TrimPrefix(strings.ToLower(point), "0"),
		"replicate":                strings.ToLower(p[len(p)-1]),
		"sample_preparation__name": strings.ToLower(p[len(p)-2]),
		"subsample":                "a",
	}
	if err := topOrSub(f, p[len(p)-3], name); err != nil {
		return nil, err
	}
	return f, nil
}

func loennstorpDS2500(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleID)
	if err != nil {
		return nil, err
	}
	p := strings.Split(name, "_")
	var code string
	switch len(p) {
	case 2:
		code = p[0]
	case 3:
		code = p[0] + "-" + strings.ToLower(p[1])
	default:
		return nil, invalid("ERROR - sample name not recognised: %s", name)
	}
	point, err := loennstorpPoint(code, name)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"point_id": point, "subsample": "a", "replicate": "0"}
	if err := topOrSub(f, p[len(p)-1], name); err != nil {
		return nil, err
	}
	return f, nil
}

func jokioinenDS2500(in Input) (record.Fields, error) {
	name, err := sampleField(in, ColSampleID)
	if err != nil {
		return nil, err
	}
	p, err := parts(name, 3)
	if err != nil {
		return nil, err
	}
	f := record.Fields{"point_id": strings.ToLower(p[0] + "-" + p[1]), "replicate": "0", "subsample": "a"}
	if err := setDepth(f, p[2]); err != nil {
		return nil, err
	}
	return f, nil
}

// neoSpectra parses NeoSpectra sample names "<point>_<lo-hi>_<replicate>".
func neoSpectra(point func(token, name string) (string, error)) ParserFunc {
	return func(in Input) (record.Fields, error) {
		name, err := sampleField(in, ColSampleName)
		if err != nil {
			return nil, err
		}
		p, err := parts(name, 3)
		if err != nil {
			return nil, err
		}
		f := record.Fields{
			"subsample":            "a",
			"replicate":            strings.ToLower(p[2]),
			"sample_analysis_date": analysisDate(in),
		}
		if f["point_id"], err = point(p[0], name); err != nil {
			return nil, err
		}
		if err := setDepth(f, p[1]); err != nil {
			return nil, err
		}
		if in.Fields.Has(ColDeviceID) {
			f["instrument_id"] = in.Fields.String(ColDeviceID)
		}
		if prep := in.JobString("sample_preparation__name"); prep != "" {
			f["sample_preparation__name"] = prep
		}
		return f, nil
	}
}

func plainPoint(token, _ string) (string, error) {
	return strings.ToLower(token), nil
}

func neretvaNeoSpectra(in Input) (record.Fields, error) {
	switch prep := in.JobString("sample_preparation__name"); prep {
	case "ds":
		return neoSpectra(func(token, _ string) (string, error) { return letterPrefixPoint(token) }).Parse(in)
	case "mx":
		return neoSpectra(plainPoint).Parse(in)
	default:
		return nil, invalid("ERROR - neretva neospectra jobs need sample_preparation__name ds or mx, got <%s>", prep)
	}
}
