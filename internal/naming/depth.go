package naming

import (
	"strconv"
	"strings"
)

// depthCodes are the depth conventions used across sites.
var depthCodes = map[string][2]string{
	"t":                 {"0", "20"},
	"s":                 {"20", "50"},
	"top":               {"0", "20"},
	"sub":               {"20", "50"},
	"comptop":           {"0", "20"},
	"compsub":           {"20", "50"},
	"d1":                {"0", "20"},
	"d2":                {"20", "50"},
	"post-infiltration": {"0", "8"},
}

// DepthFromCode resolves a depth token to its min and max depth in cm. The
// token is either a named code such as "top" or "d2", or an explicit "lo-hi"
// interval.
func DepthFromCode(token string) (minDepth, maxDepth string, err error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if d, ok := depthCodes[t]; ok {
		return d[0], d[1], nil
	}
	lo, hi, ok := strings.Cut(t, "-")
	if ok && isDigits(lo) && isDigits(hi) && !strings.Contains(hi, "-") {
		return trimZeros(lo), trimZeros(hi), nil
	}
	return "", "", invalid("ERROR - depth code not recognised: %s", token)
}

// CodeForDepth is the inverse of DepthFromCode for one convention. conv is
// one of "ts", "topsub", "comp", "d" or "post"; other depths come back as
// "lo-hi".
func CodeForDepth(conv string, minDepth, maxDepth int) string {
	want := [2]string{strconv.Itoa(minDepth), strconv.Itoa(maxDepth)}
	var candidates []string
	switch conv {
	case "ts":
		candidates = []string{"t", "s"}
	case "topsub":
		candidates = []string{"top", "sub"}
	case "comp":
		candidates = []string{"comptop", "compsub"}
	case "d":
		candidates = []string{"d1", "d2"}
	case "post":
		candidates = []string{"post-infiltration"}
	}
	for _, c := range candidates {
		if depthCodes[c] == want {
			return c
		}
	}
	return want[0] + "-" + want[1]
}

func trimZeros(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}
