package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	"smiscope/internal/cim"
)

// RegisteredProfileClass lists the SMI-S profiles a CIM server implements
const RegisteredProfileClass = "CIM_RegisteredProfile"

// arrayProfileName is the RegisteredName of the SMI-S Array profile
const arrayProfileName = "Array"

// Detection is what the interop namespace advertised
type Detection struct {
	Vendor  string `json:"vendor,omitempty"`
	Version string `json:"version,omitempty"`
	Profile string `json:"profile"`
}

// Detect reads CIM_RegisteredProfile from the interop namespace and selects
// a profile. Any failure to read the registration falls back to the generic
// profile rather than failing discovery.
func Detect(ctx context.Context, interop cim.QueryProvider, registry *Registry, logger *slog.Logger) (*Profile, Detection) {
	if logger == nil {
		logger = slog.Default()
	}

	result := cim.SafeQuery(ctx, interop, RegisteredProfileClass, logger)

	var det Detection
	var best *semver.Version
	for _, rec := range result.Records {
		if !strings.EqualFold(rec.String("RegisteredName"), arrayProfileName) {
			continue
		}
		raw := rec.String("RegisteredVersion")
		v, err := semver.NewVersion(raw)
		if err != nil {
			logger.Debug("ignoring unparseable registered version", "version", raw)
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			det.Version = v.String()
			det.Vendor = vendorPrefix(rec.Class, rec.String("InstanceID"))
		}
	}

	p, err := registry.Select(det.Vendor, det.Version)
	if err != nil {
		logger.Warn("no profile matches registration, using generic", "vendor", det.Vendor, "version", det.Version)
		p = Generic()
	}
	det.Profile = p.Name

	logger.Info("profile detected", "profile", det.Profile, "vendor", det.Vendor, "version", det.Version)
	return p, det
}

// vendorPrefix derives a vendor hint from a vendor subclass name
// (IBMTSSVC_RegisteredProfile) or an InstanceID prefix (IBMTSSVC:Array).
func vendorPrefix(class, instanceID string) string {
	if i := strings.Index(class, "_"); i > 0 {
		if prefix := class[:i]; !strings.EqualFold(prefix, "CIM") && !strings.EqualFold(prefix, "PG") {
			return prefix
		}
	}
	if i := strings.IndexAny(instanceID, ":+"); i > 0 {
		return instanceID[:i]
	}
	return ""
}
