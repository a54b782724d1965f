package domain

// Typed storage entities parsed from raw records. Key is the entity's identity
// within the run; Owner points at the containing system (zero when unknown).

// StorageArray is a top-level storage system
type StorageArray struct {
	Key          Reference
	Name         string
	Label        string
	Description  string
	Vendor       string
	Model        string
	SerialNumber string
	Version      string
}

// Properties returns the normalized attribute map
func (a StorageArray) Properties() map[string]any {
	return props().
		set("name", a.Name).
		set("label", a.Label).
		set("description", a.Description).
		set("vendor", a.Vendor).
		set("model", a.Model).
		set("serial_number", a.SerialNumber).
		set("version", a.Version).
		m
}

// StorageProcessor is a controller/node of an array
type StorageProcessor struct {
	Key         Reference
	Owner       Reference
	Name        string
	Label       string
	Description string
	IOGroupID   string
	NodeWWN     string
}

// Properties returns the normalized attribute map
func (p StorageProcessor) Properties() map[string]any {
	return props().
		set("name", p.Name).
		set("label", p.Label).
		set("description", p.Description).
		set("io_group_id", p.IOGroupID).
		set("node_wwn", p.NodeWWN).
		m
}

// IOGroup is a pairing of processors that share volume ownership
type IOGroup struct {
	Key   Reference
	Owner Reference
	Name  string
	Label string
}

// Properties returns the normalized attribute map
func (g IOGroup) Properties() map[string]any {
	return props().set("name", g.Name).set("label", g.Label).m
}

// RemoteEndpoint is a remote service access point (host or switch port) seen by the array
type RemoteEndpoint struct {
	Key        Reference
	Owner      Reference
	WWN        string
	Label      string
	AccessInfo string
}

// Properties returns the normalized attribute map
func (e RemoteEndpoint) Properties() map[string]any {
	return props().
		set("wwn", e.WWN).
		set("label", e.Label).
		set("access_info", e.AccessInfo).
		m
}

// Port is a local front-end FC port
type Port struct {
	Key      Reference
	Owner    Reference
	WWN      string
	Label    string
	PortType string
	Speed    uint64
	HasSpeed bool
	Status   string
}

// Properties returns the normalized attribute map
func (p Port) Properties() map[string]any {
	b := props().
		set("wwn", p.WWN).
		set("label", p.Label).
		set("port_type", p.PortType).
		set("status", p.Status)
	if p.HasSpeed {
		b.m["speed_bps"] = p.Speed
	}
	return b.m
}

// HostAdapter is a port controller (HBA) that owns local ports
type HostAdapter struct {
	Key            Reference
	Owner          Reference
	Label          string
	ControllerType string
	NodeWWN        string
}

// Properties returns the normalized attribute map
func (h HostAdapter) Properties() map[string]any {
	return props().
		set("label", h.Label).
		set("controller_type", h.ControllerType).
		set("node_wwn", h.NodeWWN).
		m
}

// PhysicalVolume is a backing extent or disk that pools are built from
type PhysicalVolume struct {
	Key            Reference
	Owner          Reference
	Label          string
	BlockSize      uint64
	NumberOfBlocks uint64
}

// SizeBytes returns the capacity in bytes
func (v PhysicalVolume) SizeBytes() uint64 {
	return v.BlockSize * v.NumberOfBlocks
}

// Properties returns the normalized attribute map
func (v PhysicalVolume) Properties() map[string]any {
	b := props().set("label", v.Label)
	if v.BlockSize > 0 {
		b.m["block_size"] = v.BlockSize
		b.m["size_bytes"] = v.SizeBytes()
	}
	return b.m
}

// StoragePool is an allocation unit volumes are carved from
type StoragePool struct {
	Key        Reference
	Owner      Reference
	PoolID     string
	Label      string
	TotalBytes uint64
	FreeBytes  uint64
	Primordial bool
}

// Properties returns the normalized attribute map
func (p StoragePool) Properties() map[string]any {
	b := props().set("pool_id", p.PoolID).set("label", p.Label)
	b.m["total_bytes"] = p.TotalBytes
	b.m["free_bytes"] = p.FreeBytes
	b.m["primordial"] = p.Primordial
	return b.m
}

// LogicalVolume is a host-visible volume
type LogicalVolume struct {
	Key             Reference
	Owner           Reference
	Name            string
	Label           string
	BlockSize       uint64
	NumberOfBlocks  uint64
	ThinProvisioned bool
}

// SizeBytes returns the capacity in bytes
func (v LogicalVolume) SizeBytes() uint64 {
	return v.BlockSize * v.NumberOfBlocks
}

// Properties returns the normalized attribute map
func (v LogicalVolume) Properties() map[string]any {
	b := props().set("name", v.Name).set("label", v.Label)
	if v.BlockSize > 0 {
		b.m["block_size"] = v.BlockSize
		b.m["size_bytes"] = v.SizeBytes()
	}
	b.m["thin_provisioned"] = v.ThinProvisioned
	return b.m
}

// FileSystem is a filesystem hosted by a NAS-capable array
type FileSystem struct {
	Key       Reference
	Owner     Reference
	Label     string
	Root      string
	SizeBytes uint64
	FreeBytes uint64
}

// Properties returns the normalized attribute map
func (f FileSystem) Properties() map[string]any {
	b := props().set("label", f.Label).set("root", f.Root)
	if f.SizeBytes > 0 {
		b.m["size_bytes"] = f.SizeBytes
		b.m["free_bytes"] = f.FreeBytes
	}
	return b.m
}

// FileShare is an exported share (NFS/CIFS) of a filesystem
type FileShare struct {
	Key      Reference
	Owner    Reference
	Label    string
	Path     string
	Protocol string
}

// Properties returns the normalized attribute map
func (s FileShare) Properties() map[string]any {
	return props().
		set("label", s.Label).
		set("path", s.Path).
		set("protocol", s.Protocol).
		m
}

// HardwareID is a registered storage hardware id (initiator identity)
type HardwareID struct {
	Key       Reference
	StorageID string
	Type      HardwareIDType
}

type propBuilder struct {
	m map[string]any
}

func props() *propBuilder {
	return &propBuilder{m: make(map[string]any)}
}

// set stores non-empty strings only
func (b *propBuilder) set(key, value string) *propBuilder {
	if value != "" {
		b.m[key] = value
	}
	return b
}
