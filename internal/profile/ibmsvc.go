package profile

import (
	"smiscope/internal/domain"
)

// IBMSVCName is the name of the IBM SAN Volume Controller profile
const IBMSVCName = "ibm-svc"

// IBMSVC returns the IBM SAN Volume Controller / Storwize profile.
//
// SVC nodes do not name their cluster in any property; ownership comes from
// IBMTSSVC_ComponentCS. Child pools hang off their parent through a vendor
// association instead of CIM_AllocatedFromStoragePool. The cluster and node
// classes carry vendor property names, so both have parse overrides.
func IBMSVC() *Profile {
	return &Profile{
		Name:        IBMSVCName,
		Description: "IBM SAN Volume Controller and Storwize family",
		Vendor:      "IBMTSSVC",
		Versions:    ">= 1.3.0",
		Namespace:   "root/ibm",
		Entities: map[EntityClass]string{
			EntityArray:          "IBMTSSVC_Cluster",
			EntityProcessor:      "IBMTSSVC_Node",
			EntityIOGroup:        "IBMTSSVC_IOGroup",
			EntityRemoteEndpoint: "IBMTSSVC_RemoteServiceAccessPoint",
			EntityPort:           "IBMTSSVC_FCPort",
			EntityPhysicalVolume: "IBMTSSVC_BackendVolume",
			EntityPool:           "IBMTSSVC_ConcreteStoragePool",
			EntityLogicalVolume:  "IBMTSSVC_StorageVolume",
			EntityHardwareID:     "IBMTSSVC_StorageHardwareID",
		},
		Associations: map[AssociationClass]AssociationSpec{
			AssocProcessorOwnership:    {Class: "IBMTSSVC_ComponentCS", SourceRole: "GroupComponent", TargetRole: "PartComponent"},
			AssocIOGroupMember:         {Class: "IBMTSSVC_NodeInIOGroup", SourceRole: "Collection", TargetRole: "Member"},
			AssocProcessorPort:         {Class: "IBMTSSVC_SystemDevice", SourceRole: "GroupComponent", TargetRole: "PartComponent"},
			AssocPoolHierarchy:         {Class: "IBMTSSVC_ChildPool", SourceRole: "Parent", TargetRole: "Child"},
			AssocPoolComponent:         {Class: "IBMTSSVC_ConcreteComponent", SourceRole: "GroupComponent", TargetRole: "PartComponent"},
			AssocPoolAllocation:        {Class: "IBMTSSVC_AllocatedFromStoragePool", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocEndpointLink:          {Class: "IBMTSSVC_DeviceSAPImplementation", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocControllerUnit:        {Class: "IBMTSSVC_ProtocolControllerForUnit", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocAuthorizedSubject:     {Class: "IBMTSSVC_AuthorizedSubject", SourceRole: "Privilege", TargetRole: "PrivilegedElement"},
			AssocAuthorizedTarget:      {Class: "IBMTSSVC_AuthorizedTarget", SourceRole: "Privilege", TargetRole: "TargetElement"},
			AssocControllerAccessPoint: {Class: "IBMTSSVC_SAPAvailableForElement", SourceRole: "ManagedElement", TargetRole: "AvailableSAP"},
		},
		Parsers: Parsers{
			Array:     parseSVCCluster,
			Processor: parseSVCNode,
		},
	}
}

// parseSVCCluster parses IBMTSSVC_Cluster; Name is the cluster id
func parseSVCCluster(rec domain.RawEntityRecord) (domain.StorageArray, error) {
	name, err := rec.RequireString("Name")
	if err != nil {
		return domain.StorageArray{}, err
	}
	model := rec.String("Model")
	if model == "" {
		model = "SAN Volume Controller"
	}
	return domain.StorageArray{
		Key:          domain.SystemRef(name),
		Name:         name,
		Label:        rec.FirstString("ElementName", "Name"),
		Description:  rec.String("Description"),
		Vendor:       "IBM",
		Model:        model,
		SerialNumber: rec.FirstString("SerialNumber", "ID"),
		Version:      rec.FirstString("CodeLevel", "VersionString"),
	}, nil
}

// parseSVCNode parses IBMTSSVC_Node. The owner is left unset: it is taken
// from IBMTSSVC_ComponentCS by the builder.
func parseSVCNode(rec domain.RawEntityRecord) (domain.StorageProcessor, error) {
	name, err := rec.RequireString("Name")
	if err != nil {
		return domain.StorageProcessor{}, err
	}
	p := domain.StorageProcessor{
		Key:         domain.SystemRef(name),
		Name:        name,
		Label:       rec.FirstString("ElementName", "Name"),
		Description: rec.String("Description"),
		IOGroupID:   rec.String("IOGroupID"),
	}
	if wwn, err := domain.NormalizeWWN(rec.String("WWNN")); err == nil {
		p.NodeWWN = wwn
	}
	return p, nil
}
