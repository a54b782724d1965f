package topology

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"smiscope/internal/domain"
	"smiscope/internal/identity"
	"smiscope/internal/index"
	"smiscope/internal/profile"
)

// LUNMapping is one volume exposed by a protocol controller
type LUNMapping struct {
	Number uint64
	Volume domain.Reference
}

// MaskingView binds one remote hardware id to the protocol controller it is
// authorized on, with the LUNs and local access points of that controller.
type MaskingView struct {
	Controller domain.Reference
	HardwareID domain.HardwareID
	LUNs       []LUNMapping
	LocalIDs   []string
}

// MaskingTables are the association sets a masking join reads
type MaskingTables struct {
	// ControllerUnits is protocol controller -> volume with a DeviceNumber attribute
	ControllerUnits []domain.AssociationRecord
	// HardwareIDs are parsed and classified hardware ids by key
	HardwareIDs map[domain.Reference]domain.HardwareID
	// Subjects is privilege -> hardware id
	Subjects []domain.AssociationRecord
	// Targets is privilege -> protocol controller
	Targets []domain.AssociationRecord
	// AccessPoints is protocol controller -> local service access point
	AccessPoints []domain.AssociationRecord
}

// ParseLUNNumber reads a DeviceNumber, which providers report as hex with
// or without a 0x prefix.
func ParseLUNNumber(raw string) (uint64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("empty device number: %w", domain.ErrInvalidAttribute)
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("device number %q: %w", raw, domain.ErrInvalidAttribute)
	}
	return n, nil
}

// deviceNumber extracts the LUN number from a controller unit association
func deviceNumber(a domain.AssociationRecord) (uint64, error) {
	v, ok := a.Attributes["DeviceNumber"]
	if !ok || v == nil {
		return 0, fmt.Errorf("DeviceNumber: %w", domain.ErrMissingAttribute)
	}
	switch n := v.(type) {
	case string:
		return ParseLUNNumber(n)
	case uint64:
		return n, nil
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	}
	return 0, fmt.Errorf("DeviceNumber=%v: %w", v, domain.ErrInvalidAttribute)
}

// JoinMaskingViews derives one view per authorized hardware id. A hardware id
// authorized on several controllers keeps the last one. Views whose hardware
// id is unknown are omitted and counted.
func JoinMaskingViews(t MaskingTables, logger *slog.Logger) ([]MaskingView, int) {
	if logger == nil {
		logger = slog.Default()
	}

	hwToCtrl := index.Chain(t.Subjects, t.Targets, domain.AssociationOneToOne)
	controllerOf := index.GroupOne(hwToCtrl)

	luns := make(map[domain.Reference][]LUNMapping)
	for _, a := range t.ControllerUnits {
		n, err := deviceNumber(a)
		if err != nil {
			logger.Debug("skipping controller unit", "controller", a.Source.String(), "volume", a.Target.String(), "error", err)
			continue
		}
		luns[a.Source] = append(luns[a.Source], LUNMapping{Number: n, Volume: a.Target})
	}

	locals := make(map[domain.Reference][]string)
	for _, a := range t.AccessPoints {
		if a.Target.LocalID != "" {
			locals[a.Source] = append(locals[a.Source], a.Target.LocalID)
		}
	}

	var views []MaskingView
	omitted := 0
	seen := make(map[domain.Reference]struct{})
	for _, a := range hwToCtrl {
		if _, dup := seen[a.Source]; dup {
			continue
		}
		seen[a.Source] = struct{}{}

		hw, ok := identity.Lookup(a.Source, t.HardwareIDs)
		if !ok {
			omitted++
			logger.Debug("omitting masking view with unknown hardware id", "hardware_id", a.Source.String())
			continue
		}
		ctrl := controllerOf[a.Source]
		unitLUNs, _ := identity.Lookup(ctrl, luns)
		localIDs, _ := identity.Lookup(ctrl, locals)
		views = append(views, MaskingView{
			Controller: ctrl,
			HardwareID: hw,
			LUNs:       unitLUNs,
			LocalIDs:   localIDs,
		})
	}
	return views, omitted
}

// maskingTables gathers the run's masking associations and hardware ids
func (r *run) maskingTables() MaskingTables {
	hwids := make(map[domain.Reference]domain.HardwareID)
	for _, rec := range r.records(profile.EntityHardwareID) {
		hw, err := r.parsers.HardwareID(rec)
		if err != nil {
			r.skip(rec, err)
			continue
		}
		hwids[hw.Key] = hw
	}
	return MaskingTables{
		ControllerUnits: r.associations(profile.AssocControllerUnit),
		HardwareIDs:     hwids,
		Subjects:        r.associations(profile.AssocAuthorizedSubject),
		Targets:         r.associations(profile.AssocAuthorizedTarget),
		AccessPoints:    r.associations(profile.AssocControllerAccessPoint),
	}
}

// resolveMasking expands masking views into LUN nodes with initiator, target
// and volume edges. A view is either emitted whole or omitted.
func (r *run) resolveMasking() {
	views, omitted := JoinMaskingViews(r.maskingTables(), r.logger)
	r.topo.Stats.OmittedViews += omitted

	for _, v := range views {
		initiatorKind, ok := v.HardwareID.Type.InitiatorLink()
		if !ok {
			r.omitView(v, "no storage link", nil)
			continue
		}
		targetKind, _ := v.HardwareID.Type.TargetLink()

		localIDs, err := ViewLocalIDs(v)
		if err != nil {
			r.omitView(v, "invalid local access point", err)
			continue
		}
		if len(v.LUNs) == 0 {
			r.logger.Debug("masking view has no LUNs", "controller", v.Controller.String(), "hardware_id", v.HardwareID.StorageID)
			continue
		}

		remote, ok := r.remoteFor(v.HardwareID)
		if !ok {
			continue
		}
		targets := r.localTargets(v, localIDs)

		for _, lun := range v.LUNs {
			key := domain.Reference{
				Scope:   v.Controller.Scope,
				LocalID: v.Controller.LocalID + ":" + strconv.FormatUint(lun.Number, 10),
			}
			h, ok := r.node(domain.NodeTypeLUN, key, map[string]any{
				"label":      fmt.Sprintf("LUN %d", lun.Number),
				"lun_id":     lun.Number,
				"controller": v.Controller.String(),
			})
			if !ok {
				continue
			}

			r.edge(initiatorKind, remote, h)
			for _, t := range targets {
				r.edge(targetKind, h, t)
			}
			if vol, ok := identity.Lookup(lun.Volume, r.logical); ok {
				r.edge(domain.EdgeTypeDependency, h, vol)
			} else {
				r.drop(domain.EdgeTypeDependency, key, lun.Volume)
			}
		}
	}
}

func (r *run) omitView(v MaskingView, reason string, err error) {
	r.topo.Stats.OmittedViews++
	r.logger.Debug("omitting masking view", "reason", reason,
		"controller", v.Controller.String(), "hardware_id", v.HardwareID.StorageID, "id_type", v.HardwareID.Type, "error", err)
}

// ViewLocalIDs normalizes the local access points of a view that belong to
// its protocol. One id that fails normalization fails the whole view.
func ViewLocalIDs(v MaskingView) ([]string, error) {
	var out []string
	for _, raw := range v.LocalIDs {
		if !v.HardwareID.Type.Accepts(raw) {
			continue
		}
		id, err := domain.NormalizeHardwareID(v.HardwareID.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("controller %s: %w", v.Controller, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// remoteFor returns the remote endpoint node for an initiator, creating one
// from the hardware id when the array did not report it.
func (r *run) remoteFor(hw domain.HardwareID) (domain.Handle, bool) {
	if h, ok := r.remotesByID[hw.StorageID]; ok {
		return h, true
	}
	attrs := map[string]any{
		"label":   hw.StorageID,
		"id_type": string(hw.Type),
	}
	if hw.Type.IsWWN() {
		attrs["wwn"] = hw.StorageID
	} else {
		attrs["iscsi_name"] = hw.StorageID
	}
	h, ok := r.node(domain.NodeTypeRemoteEndpoint, hw.Key, attrs)
	if ok {
		r.remotesByID[hw.StorageID] = h
	}
	return h, ok
}

// localTargets resolves normalized local ids to port nodes, or to protocol
// endpoint nodes when no port carries the id.
func (r *run) localTargets(v MaskingView, ids []string) []domain.Handle {
	var out []domain.Handle
	for _, id := range ids {
		if v.HardwareID.Type.IsWWN() {
			if h, ok := r.portsByWWN[id]; ok {
				out = append(out, h)
				continue
			}
		}
		h, ok := r.node(domain.NodeTypeProtocolEndpoint, domain.Reference{Scope: v.Controller.Scope, LocalID: id}, map[string]any{
			"label": id,
		})
		if ok {
			out = append(out, h)
		}
	}
	return out
}
