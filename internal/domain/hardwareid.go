package domain

import (
	"fmt"
	"strings"
)

// HardwareIDType classifies a CIM_StorageHardwareID by its IDType code
type HardwareIDType string

const (
	HardwareIDOther      HardwareIDType = "Other"
	HardwareIDPortWWN    HardwareIDType = "PortWWN"
	HardwareIDNodeWWN    HardwareIDType = "NodeWWN"
	HardwareIDHostname   HardwareIDType = "Hostname"
	HardwareIDISCSIName  HardwareIDType = "iSCSI Name"
	HardwareIDSwitchWWN  HardwareIDType = "SwitchWWN"
	HardwareIDSASAddress HardwareIDType = "SAS Address"
)

// hardwareIDCodes is the IDType value map of CIM_StorageHardwareID
var hardwareIDCodes = map[string]HardwareIDType{
	"1": HardwareIDOther,
	"2": HardwareIDPortWWN,
	"3": HardwareIDNodeWWN,
	"4": HardwareIDHostname,
	"5": HardwareIDISCSIName,
	"6": HardwareIDSwitchWWN,
	"7": HardwareIDSASAddress,
}

// ClassifyHardwareID maps an IDType code to its type; ok is false for unknown codes
func ClassifyHardwareID(code string) (HardwareIDType, bool) {
	t, ok := hardwareIDCodes[strings.TrimSpace(code)]
	return t, ok
}

// IsWWN reports whether ids of this type are World Wide Names
func (t HardwareIDType) IsWWN() bool {
	switch t {
	case HardwareIDPortWWN, HardwareIDNodeWWN, HardwareIDSwitchWWN:
		return true
	}
	return false
}

// IsISCSI reports whether ids of this type are iSCSI qualified names
func (t HardwareIDType) IsISCSI() bool {
	return t == HardwareIDISCSIName
}

// InitiatorLink returns the edge kind linking a remote initiator of this type to a LUN.
// ok is false for types that have no storage-protocol link (hostname, SAS, other).
func (t HardwareIDType) InitiatorLink() (EdgeType, bool) {
	switch {
	case t.IsWWN():
		return EdgeTypeFCConnect, true
	case t.IsISCSI():
		return EdgeTypeISCSIInitiator, true
	}
	return "", false
}

// TargetLink returns the edge kind linking a LUN to the local target port
func (t HardwareIDType) TargetLink() (EdgeType, bool) {
	switch {
	case t.IsWWN():
		return EdgeTypeFCConnect, true
	case t.IsISCSI():
		return EdgeTypeISCSITarget, true
	}
	return "", false
}

// iscsiNamePrefixes are the iSCSI name formats of RFC 3720
var iscsiNamePrefixes = []string{"iqn.", "eui.", "naa."}

// IsISCSIName reports whether raw is written as an iSCSI name
func IsISCSIName(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range iscsiNamePrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// Accepts reports whether a local access point id belongs to the protocol of
// this type. WWN types take everything that is not an iSCSI name, so that a
// malformed WWN still fails normalization.
func (t HardwareIDType) Accepts(raw string) bool {
	switch {
	case t.IsWWN():
		return !IsISCSIName(raw)
	case t.IsISCSI():
		return IsISCSIName(raw)
	}
	return false
}

// NormalizeHardwareID canonicalizes a storage id for its type.
// WWN types must normalize to 8 octets; iSCSI names are lower-cased.
func NormalizeHardwareID(t HardwareIDType, raw string) (string, error) {
	switch {
	case t.IsWWN():
		return NormalizeWWN(raw)
	case t.IsISCSI():
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			return "", fmt.Errorf("empty iSCSI name: %w", ErrInvalidAttribute)
		}
		return id, nil
	default:
		id := strings.TrimSpace(raw)
		if id == "" {
			return "", fmt.Errorf("empty %s id: %w", t, ErrInvalidAttribute)
		}
		return id, nil
	}
}
