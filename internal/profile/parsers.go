package profile

import (
	"fmt"
	"strings"

	"smiscope/internal/domain"
)

// Parsers converts raw records into typed entities. A nil field means the
// generic SMI-S parser is used for that entity.
type Parsers struct {
	Array          func(domain.RawEntityRecord) (domain.StorageArray, error)
	Processor      func(domain.RawEntityRecord) (domain.StorageProcessor, error)
	IOGroup        func(domain.RawEntityRecord) (domain.IOGroup, error)
	RemoteEndpoint func(domain.RawEntityRecord) (domain.RemoteEndpoint, error)
	Port           func(domain.RawEntityRecord) (domain.Port, error)
	HostAdapter    func(domain.RawEntityRecord) (domain.HostAdapter, error)
	PhysicalVolume func(domain.RawEntityRecord) (domain.PhysicalVolume, error)
	Pool           func(domain.RawEntityRecord) (domain.StoragePool, error)
	LogicalVolume  func(domain.RawEntityRecord) (domain.LogicalVolume, error)
	FileSystem     func(domain.RawEntityRecord) (domain.FileSystem, error)
	FileShare      func(domain.RawEntityRecord) (domain.FileShare, error)
	HardwareID     func(domain.RawEntityRecord) (domain.HardwareID, error)
}

// Merge fills nil parsers from base
func (p Parsers) Merge(base Parsers) Parsers {
	if p.Array == nil {
		p.Array = base.Array
	}
	if p.Processor == nil {
		p.Processor = base.Processor
	}
	if p.IOGroup == nil {
		p.IOGroup = base.IOGroup
	}
	if p.RemoteEndpoint == nil {
		p.RemoteEndpoint = base.RemoteEndpoint
	}
	if p.Port == nil {
		p.Port = base.Port
	}
	if p.HostAdapter == nil {
		p.HostAdapter = base.HostAdapter
	}
	if p.PhysicalVolume == nil {
		p.PhysicalVolume = base.PhysicalVolume
	}
	if p.Pool == nil {
		p.Pool = base.Pool
	}
	if p.LogicalVolume == nil {
		p.LogicalVolume = base.LogicalVolume
	}
	if p.FileSystem == nil {
		p.FileSystem = base.FileSystem
	}
	if p.FileShare == nil {
		p.FileShare = base.FileShare
	}
	if p.HardwareID == nil {
		p.HardwareID = base.HardwareID
	}
	return p
}

// GenericParsers returns the SNIA SMI-S parsers
func GenericParsers() Parsers {
	return Parsers{
		Array:          ParseArray,
		Processor:      ParseProcessor,
		IOGroup:        ParseIOGroup,
		RemoteEndpoint: ParseRemoteEndpoint,
		Port:           ParsePort,
		HostAdapter:    ParseHostAdapter,
		PhysicalVolume: ParsePhysicalVolume,
		Pool:           ParsePool,
		LogicalVolume:  ParseLogicalVolume,
		FileSystem:     ParseFileSystem,
		FileShare:      ParseFileShare,
		HardwareID:     ParseHardwareID,
	}
}

// ============================================================================
// Helpers
// ============================================================================

// componentKey returns the record's identity or ErrMissingAttribute
func componentKey(rec domain.RawEntityRecord) (domain.Reference, error) {
	key := rec.PathRef()
	if key.IsZero() {
		return key, fmt.Errorf("%s: no key properties: %w", rec.Class, domain.ErrMissingAttribute)
	}
	return key, nil
}

// ownerOf returns the containing system implied by the record's scope
func ownerOf(rec domain.RawEntityRecord, key domain.Reference) domain.Reference {
	scope := rec.Scope
	if scope == "" {
		scope = key.Scope
	}
	if scope == "" {
		return domain.Reference{}
	}
	return domain.SystemRef(scope)
}

// blocks reads BlockSize and NumberOfBlocks
func blocks(rec domain.RawEntityRecord) (size, count uint64, err error) {
	if size, _, err = rec.Uint64("BlockSize"); err != nil {
		return 0, 0, err
	}
	if count, _, err = rec.Uint64("NumberOfBlocks"); err != nil {
		return 0, 0, err
	}
	return size, count, nil
}

// ============================================================================
// Generic SMI-S parsers
// ============================================================================

// ParseArray parses a CIM_StorageSystem
func ParseArray(rec domain.RawEntityRecord) (domain.StorageArray, error) {
	name, err := rec.RequireString("Name")
	if err != nil {
		return domain.StorageArray{}, err
	}
	return domain.StorageArray{
		Key:          domain.SystemRef(name),
		Name:         name,
		Label:        rec.FirstString("ElementName", "Name"),
		Description:  rec.String("Description"),
		Vendor:       rec.FirstString("Manufacturer", "Vendor"),
		Model:        rec.String("Model"),
		SerialNumber: rec.String("SerialNumber"),
		Version:      rec.FirstString("VersionString", "Version"),
	}, nil
}

// ParseProcessor parses a storage processor system. The owning array is
// carried directly in the record's SystemName property.
func ParseProcessor(rec domain.RawEntityRecord) (domain.StorageProcessor, error) {
	name, err := rec.RequireString("Name")
	if err != nil {
		return domain.StorageProcessor{}, err
	}
	p := domain.StorageProcessor{
		Key:         domain.SystemRef(name),
		Name:        name,
		Label:       rec.FirstString("ElementName", "Name"),
		Description: rec.String("Description"),
	}
	if owner := rec.String("SystemName"); owner != "" && owner != name {
		p.Owner = domain.SystemRef(owner)
	}
	if wwn, err := domain.NormalizeWWN(rec.String("NodeWWN")); err == nil {
		p.NodeWWN = wwn
	}
	return p, nil
}

// ParseIOGroup parses an IO group collection
func ParseIOGroup(rec domain.RawEntityRecord) (domain.IOGroup, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.IOGroup{}, err
	}
	return domain.IOGroup{
		Key:   key,
		Owner: ownerOf(rec, key),
		Name:  rec.FirstString("Name", "InstanceID"),
		Label: rec.FirstString("ElementName", "Name", "InstanceID"),
	}, nil
}

// ParseRemoteEndpoint parses a CIM_RemoteServiceAccessPoint whose AccessInfo is a remote WWN
func ParseRemoteEndpoint(rec domain.RawEntityRecord) (domain.RemoteEndpoint, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.RemoteEndpoint{}, err
	}
	access := rec.FirstString("AccessInfo", "Name")
	wwn, err := domain.NormalizeWWN(access)
	if err != nil {
		return domain.RemoteEndpoint{}, fmt.Errorf("%s %s: %w", rec.Class, key, err)
	}
	return domain.RemoteEndpoint{
		Key:        key,
		Owner:      ownerOf(rec, key),
		WWN:        wwn,
		Label:      rec.FirstString("ElementName", "Name"),
		AccessInfo: access,
	}, nil
}

// ParsePort parses a CIM_FCPort; PermanentAddress must be a WWN
func ParsePort(rec domain.RawEntityRecord) (domain.Port, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.Port{}, err
	}
	wwn, err := domain.NormalizeWWN(rec.String("PermanentAddress"))
	if err != nil {
		return domain.Port{}, fmt.Errorf("%s %s: %w", rec.Class, key, err)
	}
	speed, hasSpeed, err := rec.Uint64("Speed")
	if err != nil {
		return domain.Port{}, err
	}
	return domain.Port{
		Key:      key,
		Owner:    ownerOf(rec, key),
		WWN:      wwn,
		Label:    rec.FirstString("ElementName", "DeviceID"),
		PortType: rec.String("PortType"),
		Speed:    speed,
		HasSpeed: hasSpeed,
		Status:   rec.String("Status"),
	}, nil
}

// ParseHostAdapter parses a CIM_PortController
func ParseHostAdapter(rec domain.RawEntityRecord) (domain.HostAdapter, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.HostAdapter{}, err
	}
	h := domain.HostAdapter{
		Key:            key,
		Owner:          ownerOf(rec, key),
		Label:          rec.FirstString("ElementName", "DeviceID"),
		ControllerType: rec.String("ControllerType"),
	}
	if wwn, err := domain.NormalizeWWN(rec.String("NodeWWN")); err == nil {
		h.NodeWWN = wwn
	}
	return h, nil
}

// ParsePhysicalVolume parses a backing CIM_StorageExtent
func ParsePhysicalVolume(rec domain.RawEntityRecord) (domain.PhysicalVolume, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.PhysicalVolume{}, err
	}
	size, count, err := blocks(rec)
	if err != nil {
		return domain.PhysicalVolume{}, err
	}
	return domain.PhysicalVolume{
		Key:            key,
		Owner:          ownerOf(rec, key),
		Label:          rec.FirstString("ElementName", "Name", "DeviceID"),
		BlockSize:      size,
		NumberOfBlocks: count,
	}, nil
}

// ParsePool parses a CIM_StoragePool
func ParsePool(rec domain.RawEntityRecord) (domain.StoragePool, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.StoragePool{}, err
	}
	total, _, err := rec.Uint64("TotalManagedSpace")
	if err != nil {
		return domain.StoragePool{}, err
	}
	free, _, err := rec.Uint64("RemainingManagedSpace")
	if err != nil {
		return domain.StoragePool{}, err
	}
	primordial, _, err := rec.Bool("Primordial")
	if err != nil {
		return domain.StoragePool{}, err
	}
	return domain.StoragePool{
		Key:        key,
		Owner:      ownerOf(rec, key),
		PoolID:     rec.String("PoolID"),
		Label:      rec.FirstString("ElementName", "PoolID", "InstanceID"),
		TotalBytes: total,
		FreeBytes:  free,
		Primordial: primordial,
	}, nil
}

// ParseLogicalVolume parses a CIM_StorageVolume
func ParseLogicalVolume(rec domain.RawEntityRecord) (domain.LogicalVolume, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.LogicalVolume{}, err
	}
	size, count, err := blocks(rec)
	if err != nil {
		return domain.LogicalVolume{}, err
	}
	thin, _, err := rec.Bool("ThinlyProvisioned")
	if err != nil {
		return domain.LogicalVolume{}, err
	}
	return domain.LogicalVolume{
		Key:             key,
		Owner:           ownerOf(rec, key),
		Name:            rec.String("Name"),
		Label:           rec.FirstString("ElementName", "Name", "DeviceID"),
		BlockSize:       size,
		NumberOfBlocks:  count,
		ThinProvisioned: thin,
	}, nil
}

// ParseFileSystem parses a CIM_LocalFileSystem
func ParseFileSystem(rec domain.RawEntityRecord) (domain.FileSystem, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.FileSystem{}, err
	}
	size, _, err := rec.Uint64("FileSystemSize")
	if err != nil {
		return domain.FileSystem{}, err
	}
	free, _, err := rec.Uint64("AvailableSpace")
	if err != nil {
		return domain.FileSystem{}, err
	}
	return domain.FileSystem{
		Key:       key,
		Owner:     ownerOf(rec, key),
		Label:     rec.FirstString("ElementName", "Name"),
		Root:      rec.String("Root"),
		SizeBytes: size,
		FreeBytes: free,
	}, nil
}

// ParseFileShare parses a CIM_FileShare. The protocol is taken from the
// record or inferred from an NFS/CIFS subclass name.
func ParseFileShare(rec domain.RawEntityRecord) (domain.FileShare, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.FileShare{}, err
	}
	protocol := rec.String("Protocol")
	if protocol == "" {
		class := strings.ToUpper(rec.Class)
		switch {
		case strings.Contains(class, "NFS"):
			protocol = "NFS"
		case strings.Contains(class, "CIFS"), strings.Contains(class, "SMB"):
			protocol = "CIFS"
		}
	}
	return domain.FileShare{
		Key:      key,
		Owner:    ownerOf(rec, key),
		Label:    rec.FirstString("ElementName", "Name", "InstanceID"),
		Path:     rec.FirstString("SharingDirectory", "Name"),
		Protocol: protocol,
	}, nil
}

// ParseHardwareID parses a CIM_StorageHardwareID
func ParseHardwareID(rec domain.RawEntityRecord) (domain.HardwareID, error) {
	key, err := componentKey(rec)
	if err != nil {
		return domain.HardwareID{}, err
	}
	code, err := rec.RequireString("IDType")
	if err != nil {
		return domain.HardwareID{}, err
	}
	idType, ok := domain.ClassifyHardwareID(code)
	if !ok {
		return domain.HardwareID{}, fmt.Errorf("%s %s: IDType %q: %w", rec.Class, key, code, domain.ErrInvalidAttribute)
	}
	raw, err := rec.RequireString("StorageID")
	if err != nil {
		return domain.HardwareID{}, err
	}
	id, err := domain.NormalizeHardwareID(idType, raw)
	if err != nil {
		return domain.HardwareID{}, fmt.Errorf("%s %s: %w", rec.Class, key, err)
	}
	return domain.HardwareID{Key: key, StorageID: id, Type: idType}, nil
}
