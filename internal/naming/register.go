package naming

func init() {
	device := map[[2]string]ParserFunc{
		{"neretva", ProcedureISEpH}:                 neretvaISEpH,
		{"neretva", ProcedureGX16EC}:                neretvaGX16EC,
		{"neretva", ProcedurePenetrometer}:          neretvaPenetrometer,
		{"neretva", ProcedureSpectra}:               neretvaSpectra,
		{"boermarke-zeijen", ProcedurePenetrometer}: boermarkePenetrometer,
		{"boermarke-zeijen", ProcedureSpectra}:      boermarkeSpectra,
		{"jokioinen", ProcedureISEpH}:               jokioinenISEpH,
		{"jokioinen", ProcedureGX16EC}:              jokioinenGX16EC,
		{"jokioinen", ProcedurePenetrometer}:        jokioinenPenetrometer,
		{"jokioinen", ProcedureSpectra}:             jokioinenSpectra,
		{"foulum", ProcedureSpectra}:                foulumSpectra,
		{"loennstorp", ProcedureSpectra}:            loennstorpSpectra,
		{"loennstorp_safe", ProcedureSpectra}:       loennstorpSafeSpectra,
		{"munsoe", ProcedureSpectra}:                munsoeSpectra,
		{"julita", ProcedureSpectra}:                julitaSpectra,
		{"tovetorp", ProcedureSpectra}:              tovetorpSpectra,
		{"zazari", ProcedureSpectra}:                zazariSpectra,
		{"zazari", ProcedurePenetrometer}:           zazariPenetrometer,
	}
	tabular := map[[2]string]ParserFunc{
		{"ktima-gerovassiliou", ProcedureVeltia}:     ktimaWetlab,
		{"ktima-gerovassiliou", ProcedureDS2500}:     ktimaSampleName,
		{"foulum", ProcedureDS2500}:                  foulumDS2500,
		{"neretva", ProcedureDS2500}:                 neretvaDS2500,
		{"boermarke-zeijen", ProcedureDS2500}:        boermarkeDS2500,
		{"loennstorp", ProcedureDS2500}:              loennstorpDS2500,
		{"jokioinen", ProcedureDS2500}:               jokioinenDS2500,
		{"ktima-gerovassiliou", ProcedureNeoSpectra}: ktimaSampleName,
		{"foulum", ProcedureNeoSpectra}:              neoSpectra(plainPoint),
		{"neretva", ProcedureNeoSpectra}:             neretvaNeoSpectra,
		{"boermarke-zeijen", ProcedureNeoSpectra}:    neoSpectra(plainPoint),
		{"loennstorp", ProcedureNeoSpectra}:          neoSpectra(loennstorpPoint),
		{"jokioinen", ProcedureNeoSpectra}:           neoSpectra(plainPoint),
	}
	for _, set := range []map[[2]string]ParserFunc{device, tabular} {
		for k, p := range set {
			Register(k[0], k[1], p)
		}
	}
}
