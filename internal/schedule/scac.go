package schedule

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSCAC is returned for carrier codes outside the supported set.
var ErrUnknownSCAC = errors.New("unknown carrier code")

// SCAC is a Standard Carrier Alpha Code.
type SCAC string

const (
	SCACCMDU SCAC = "CMDU" // CMA CGM
	SCACANNU SCAC = "ANNU" // ANL
	SCACCHNL SCAC = "CHNL" // Cheng Lie Navigation
	SCACAPLU SCAC = "APLU" // APL
	SCACMAEU SCAC = "MAEU" // Maersk
	SCACMAEI SCAC = "MAEI" // Maersk Line Limited
	SCACHLCU SCAC = "HLCU" // Hapag-Lloyd
	SCACMSCU SCAC = "MSCU" // MSC
	SCACONEY SCAC = "ONEY" // Ocean Network Express
	SCACZIMU SCAC = "ZIMU" // ZIM
	SCACCOSU SCAC = "COSU" // COSCO
	SCACOOLU SCAC = "OOLU" // OOCL
	SCACYMJA SCAC = "YMJA" // Yang Ming
	SCACEGLV SCAC = "EGLV" // Evergreen
)

var supportedSCACs = []SCAC{
	SCACCMDU, SCACANNU, SCACCHNL, SCACAPLU,
	SCACMAEU, SCACMAEI,
	SCACHLCU,
	SCACMSCU,
	SCACONEY,
	SCACZIMU,
	SCACCOSU, SCACOOLU,
	SCACYMJA,
	SCACEGLV,
}

// SupportedSCACs returns every carrier code the aggregator can query.
func SupportedSCACs() []SCAC {
	out := make([]SCAC, len(supportedSCACs))
	copy(out, supportedSCACs)
	return out
}

// Valid reports whether s belongs to the supported set.
func (s SCAC) Valid() bool {
	for _, known := range supportedSCACs {
		if s == known {
			return true
		}
	}
	return false
}

func (s SCAC) String() string { return string(s) }

// ParseSCAC normalizes and validates a carrier code.
func ParseSCAC(v string) (SCAC, error) {
	s := SCAC(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSCAC, v)
	}
	return s, nil
}

// JoinSCACs renders codes as a comma-separated list.
func JoinSCACs(codes []SCAC) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
