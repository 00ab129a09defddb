// Package schema assembles finalized records into the AI4SH and xspectre
// JSON documents.
package schema

import (
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/record"
)

// Names of the two document shapes, used for output folders and logs.
const (
	AI4SH    = "ai4sh"
	Xspectre = "xspectre"
)

// XspectreOptions controls the optional parts of the xspectre document.
type XspectreOptions struct {
	// ExtendedMetadata adds scan tuning, QC counters, raw digital numbers
	// and white reference files to spectral observations.
	ExtendedMetadata bool
}

// AssembleAI4SH builds the nested AI4SH document for rec. Tabular indicator
// maps are grouped by equipment and method, everything else is listed under
// the procedure.
func AssembleAI4SH(rec *record.Record) (*AI4SHDocument, error) {
	if err := check(rec); err != nil {
		return nil, err
	}

	var analysis Object
	if grouped(rec) {
		var methods Object
		for _, m := range rec.Observation.Measurements {
			e := measurementEntry(m)
			e.Procedure = ""
			prev, _ := methods.Get(m.Method)
			list, _ := prev.([]Entry)
			methods.Set(m.Method, append(list, e))
		}
		analysis.Set(rec.Observation.Equipment, []Object{methods})
	} else {
		list := entries(rec)
		for i := range list {
			list[i].Procedure = ""
		}
		analysis.Set(rec.Procedure, list)
	}

	obs := AI4SHObservation{ObservationMetadata: metadata(rec), AnalysisMethod: analysis}
	sample := Sample{Name: rec.SampleID, MinDepth: rec.MinDepth, MaxDepth: rec.MaxDepth, Observation: []AI4SHObservation{obs}}
	log := SamplingLog{SamplingLogInfo: samplingLog(rec), Sample: []Sample{sample}}
	point := Point{
		Name:        rec.PointID,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Setting:     rec.Setting,
		SamplingLog: []SamplingLog{log},
	}
	site := Site{Name: rec.SiteID, Point: []Point{point}}

	return &AI4SHDocument{
		DataSource: []DataSource{{Name: campaign(rec), Site: []Site{site}}},
	}, nil
}

// AssembleXspectre builds the flat xspectre document for rec, keyed by
// indicator.
func AssembleXspectre(rec *record.Record, opts XspectreOptions) (*XspectreDocument, error) {
	if err := check(rec); err != nil {
		return nil, err
	}

	var analysis Object
	for _, e := range entries(rec) {
		analysis.Set(e.Indicator, e)
	}

	obs := XspectreObservation{ObservationMetadata: metadata(rec), Analysis: analysis}
	if sp := rec.Observation.Spectrum; sp != nil && opts.ExtendedMetadata && sp.ScanTuning != nil {
		obs.Metadata = &SpectraMetadata{ScanTuning: sp.ScanTuning, Error: sp.QC, Muzzle: rec.Muzzle}
		if sp.ScanDN != nil {
			obs.ScanDN = &ScanDN{
				SampleMean: sp.ScanDN.SampleMean,
				SampleStd:  sp.ScanDN.SampleStd,
				DarkMean:   sp.ScanDN.DarkMean,
				DarkStd:    sp.ScanDN.DarkStd,
			}
		}
		obs.WhiteReference = &WhiteReference{Files: sp.WhiteReferenceFiles}
	}

	return &XspectreDocument{
		Campaign:    campaign(rec),
		SamplingLog: samplingLog(rec),
		Sample:      rec.SampleID,
		Locus: Locus{
			PositionName: rec.PositionName,
			Point:        rec.PointID,
			Setting:      rec.Setting,
			Latitude:     rec.Latitude,
			Longitude:    rec.Longitude,
			MinDepth:     rec.MinDepth,
			MaxDepth:     rec.MaxDepth,
		},
		Observation: obs,
	}, nil
}

func check(rec *record.Record) error {
	if rec == nil {
		return invalid("record is nil")
	}
	for _, f := range [][2]string{
		{"site_id", rec.SiteID},
		{"point_id", rec.PointID},
		{"sample_id", rec.SampleID},
		{"sampling_log_id", rec.SamplingLogID},
		{"procedure", rec.Procedure},
	} {
		if f[1] == "" {
			return invalid("record lacks %s", f[0])
		}
	}
	switch rec.Observation.Kind {
	case record.SingleAnalyte:
		if rec.Observation.Spectrum == nil {
			return invalid("sample %s has no spectrum", rec.SampleID)
		}
	case record.IndicatorMap:
		if len(rec.Observation.Measurements) == 0 {
			return invalid("sample %s has no measurements", rec.SampleID)
		}
		if grouped(rec) && rec.Observation.Equipment == "" {
			return invalid("sample %s has no equipment", rec.SampleID)
		}
	default:
		return invalid("sample %s has no observation", rec.SampleID)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("schema").
		Category(errors.CategoryValidation).
		Build()
}

// grouped reports whether measurements came from a method table and are
// nested under equipment and method.
func grouped(rec *record.Record) bool {
	ms := rec.Observation.Measurements
	return rec.Observation.Kind == record.IndicatorMap && len(ms) > 0 && ms[0].Method != ""
}

func campaign(rec *record.Record) string {
	return "ai4sh_" + rec.SiteID
}

func samplingLog(rec *record.Record) SamplingLogInfo {
	return SamplingLogInfo{Name: rec.SamplingLogID, DateStamp: rec.SampleDate, PersonEmail: rec.SamplingEmail}
}

func metadata(rec *record.Record) ObservationMetadata {
	return ObservationMetadata{
		SamplePreparation: rec.SamplePreparation,
		PersonEmail:       rec.AnalysisEmail,
		Subsample:         rec.Subsample,
		Replicate:         rec.Replicate,
		NRepeats:          rec.NRepetitions,
		DateStamp:         rec.AnalysisDate,
		Logistic: Logistic{
			Preservation:       rec.Preservation,
			Transport:          rec.Transport,
			TransportDurationH: rec.TransportDurationH,
			Storage:            rec.Storage,
			StorageDurationH:   rec.StorageDurationH,
			PersonEmail:        rec.LogisticEmail,
		},
	}
}

// entries flattens the observation into one entry per indicator.
func entries(rec *record.Record) []Entry {
	if rec.Observation.Kind == record.SingleAnalyte {
		sp := rec.Observation.Spectrum
		e := Entry{
			Value:           Floats(sp.Value),
			Unit:            sp.Unit,
			Indicator:       sp.Indicator,
			Procedure:       rec.Procedure,
			AnalysisMethod:  rec.AnalysisMethod,
			InstrumentBrand: rec.InstrumentBrand,
			InstrumentModel: rec.InstrumentModel,
			InstrumentID:    rec.InstrumentID,
		}
		if sp.StdDev != nil {
			e.StandardDeviation = Floats(sp.StdDev)
		}
		return []Entry{e}
	}
	out := make([]Entry, 0, len(rec.Observation.Measurements))
	for _, m := range rec.Observation.Measurements {
		out = append(out, measurementEntry(m))
	}
	return out
}

func measurementEntry(m record.Measurement) Entry {
	e := Entry{
		Value:           m.Value,
		Unit:            m.Unit,
		Indicator:       m.Indicator,
		Procedure:       m.Procedure,
		AnalysisMethod:  m.AnalysisMethod,
		InstrumentBrand: m.InstrumentBrand,
		InstrumentModel: m.InstrumentModel,
		InstrumentID:    m.InstrumentID,
	}
	if m.StdDev != nil {
		e.StandardDeviation = m.StdDev
	}
	return e
}
