package profile

// GenericName is the name of the SNIA SMI-S profile
const GenericName = "generic"

// Generic returns the SNIA SMI-S Array profile
func Generic() *Profile {
	return &Profile{
		Name:        GenericName,
		Description: "SNIA SMI-S Array profile (block and NAS)",
		Namespace:   "root/cimv2",
		Entities: map[EntityClass]string{
			EntityArray:          "CIM_StorageSystem",
			EntityProcessor:      "CIM_StorageProcessorSystem",
			EntityIOGroup:        "CIM_IOGroup",
			EntityRemoteEndpoint: "CIM_RemoteServiceAccessPoint",
			EntityPort:           "CIM_FCPort",
			EntityHostAdapter:    "CIM_PortController",
			EntityPhysicalVolume: "CIM_StorageExtent",
			EntityPool:           "CIM_StoragePool",
			EntityLogicalVolume:  "CIM_StorageVolume",
			EntityFileSystem:     "CIM_LocalFileSystem",
			EntityFileShare:      "CIM_FileShare",
			EntityHardwareID:     "CIM_StorageHardwareID",
		},
		Associations: map[AssociationClass]AssociationSpec{
			AssocIOGroupMember:         {Class: "CIM_MemberOfCollection", SourceRole: "Collection", TargetRole: "Member"},
			AssocProcessorPort:         {Class: "CIM_SystemDevice", SourceRole: "GroupComponent", TargetRole: "PartComponent"},
			AssocAdapterPort:           {Class: "CIM_ControlledBy", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocPoolHierarchy:         {Class: "CIM_AllocatedFromStoragePool", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocPoolComponent:         {Class: "CIM_ConcreteComponent", SourceRole: "GroupComponent", TargetRole: "PartComponent"},
			AssocPoolAllocation:        {Class: "CIM_AllocatedFromStoragePool", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocVolumeExtent:          {Class: "CIM_BasedOn", SourceRole: "Dependent", TargetRole: "Antecedent"},
			AssocFileSystemVolume:      {Class: "CIM_ResidesOnExtent", SourceRole: "Dependent", TargetRole: "Antecedent"},
			AssocShareFileSystem:       {Class: "CIM_SharedElement", SourceRole: "SameElement", TargetRole: "SystemElement"},
			AssocEndpointLink:          {Class: "CIM_DeviceSAPImplementation", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocControllerUnit:        {Class: "CIM_ProtocolControllerForUnit", SourceRole: "Antecedent", TargetRole: "Dependent"},
			AssocAuthorizedSubject:     {Class: "CIM_AuthorizedSubject", SourceRole: "Privilege", TargetRole: "PrivilegedElement"},
			AssocAuthorizedTarget:      {Class: "CIM_AuthorizedTarget", SourceRole: "Privilege", TargetRole: "TargetElement"},
			AssocControllerAccessPoint: {Class: "CIM_SAPAvailableForElement", SourceRole: "ManagedElement", TargetRole: "AvailableSAP"},
		},
	}
}
