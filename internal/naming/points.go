package naming

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LoennstorpPointID maps the point codes written by field staff to the
// registered point ids.
var LoennstorpPointID = map[string]string{
	"4": "4-a", "04": "4-a", "5": "5-a", "16": "16-a", "20": "20-a", "24": "24-a",
	"51": "51-c", "55": "55-c", "60": "60-c", "61": "61-c", "72": "72-c",
	"79": "79-d", "80": "80-d", "91": "91-d", "95": "95-d", "99": "99-d",
	"1-sand": "1-sand", "2-sand": "2-sand", "3-organic": "3-organic",
	"4-organic": "4-organic", "5-organic": "5-organic", "9-sand": "9-sand",
	"001-sand": "1-sand", "002-sand": "2-sand", "003-organic": "3-organic",
	"004-organic": "4-organic", "005-organic": "5-organic", "009-sand": "9-sand",
}

func loennstorpPoint(code, name string) (string, error) {
	p, ok := LoennstorpPointID[strings.ToLower(code)]
	if !ok {
		return "", invalid("ERROR - point id <%s> not recognised for loennstorp: %s", code, name)
	}
	return p, nil
}

// boermarkePoint strips the two character site prefix and one leading zero
// from a Boermarke-Zeijen point token.
func boermarkePoint(token string) string {
	if len(token) < 3 {
		return strings.ToLower(token)
	}
	point := strings.ToLower(token[2:])
	point = strings.NewReplacer(" ", "-", "_", "-").Replace(point)
	return strings.TrimPrefix(point, "0")
}

// foldJulita lower-cases a Julita point name and drops the diaeresis and
// ring from å, ä and ö.
func foldJulita(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	decomposed = strings.NewReplacer("\u0308", "", "\u030a", "").Replace(decomposed)
	return strings.ReplaceAll(norm.NFC.String(decomposed), "blomm", "blom")
}
