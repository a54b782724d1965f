package cim

import (
	"encoding/xml"
	"strings"

	"smiscope/internal/domain"
)

// CIM-XML (DSP0201) subset needed for EnumerateInstances.

type cimDocument struct {
	XMLName xml.Name   `xml:"CIM"`
	Message cimMessage `xml:"MESSAGE"`
}

type cimMessage struct {
	ID       string        `xml:"ID,attr"`
	Response *cimSimpleRsp `xml:"SIMPLERSP"`
}

type cimSimpleRsp struct {
	IMethodResponse cimIMethodResponse `xml:"IMETHODRESPONSE"`
}

type cimIMethodResponse struct {
	Name        string           `xml:"NAME,attr"`
	Error       *cimError        `xml:"ERROR"`
	ReturnValue *cimIReturnValue `xml:"IRETURNVALUE"`
}

type cimError struct {
	Code        int    `xml:"CODE,attr"`
	Description string `xml:"DESCRIPTION,attr"`
}

type cimIReturnValue struct {
	NamedInstances []cimNamedInstance `xml:"VALUE.NAMEDINSTANCE"`
}

type cimNamedInstance struct {
	Name     cimInstanceName `xml:"INSTANCENAME"`
	Instance cimInstance     `xml:"INSTANCE"`
}

type cimInstanceName struct {
	ClassName   string          `xml:"CLASSNAME,attr"`
	KeyBindings []cimKeyBinding `xml:"KEYBINDING"`
	KeyValue    *cimKeyValue    `xml:"KEYVALUE"`
}

type cimKeyBinding struct {
	Name     string       `xml:"NAME,attr"`
	KeyValue *cimKeyValue `xml:"KEYVALUE"`
}

type cimKeyValue struct {
	ValueType string `xml:"VALUETYPE,attr"`
	Value     string `xml:",chardata"`
}

type cimInstance struct {
	ClassName  string                 `xml:"CLASSNAME,attr"`
	Properties []cimProperty          `xml:"PROPERTY"`
	Arrays     []cimPropertyArray     `xml:"PROPERTY.ARRAY"`
	References []cimPropertyReference `xml:"PROPERTY.REFERENCE"`
}

type cimProperty struct {
	Name  string  `xml:"NAME,attr"`
	Type  string  `xml:"TYPE,attr"`
	Value *string `xml:"VALUE"`
}

type cimPropertyArray struct {
	Name   string         `xml:"NAME,attr"`
	Type   string         `xml:"TYPE,attr"`
	Values *cimValueArray `xml:"VALUE.ARRAY"`
}

type cimValueArray struct {
	Values []string `xml:"VALUE"`
}

type cimPropertyReference struct {
	Name  string             `xml:"NAME,attr"`
	Value *cimValueReference `xml:"VALUE.REFERENCE"`
}

type cimValueReference struct {
	InstancePath      *cimInstancePath      `xml:"INSTANCEPATH"`
	LocalInstancePath *cimLocalInstancePath `xml:"LOCALINSTANCEPATH"`
	InstanceName      *cimInstanceName      `xml:"INSTANCENAME"`
}

type cimInstancePath struct {
	InstanceName cimInstanceName `xml:"INSTANCENAME"`
}

type cimLocalInstancePath struct {
	InstanceName cimInstanceName `xml:"INSTANCENAME"`
}

func (v *cimValueReference) name() *cimInstanceName {
	switch {
	case v == nil:
		return nil
	case v.InstancePath != nil:
		return &v.InstancePath.InstanceName
	case v.LocalInstancePath != nil:
		return &v.LocalInstancePath.InstanceName
	default:
		return v.InstanceName
	}
}

func (n *cimInstanceName) keys() map[string]string {
	keys := make(map[string]string, len(n.KeyBindings))
	for _, kb := range n.KeyBindings {
		if kb.KeyValue != nil {
			keys[kb.Name] = strings.TrimSpace(kb.KeyValue.Value)
		}
	}
	return keys
}

// PathRef maps the key bindings of a CIM object path onto a Reference
func PathRef(keys map[string]string) domain.Reference {
	return domain.PathRef(keys)
}

// toRecord converts a named instance into a raw record
func (ni *cimNamedInstance) toRecord(className string) domain.RawEntityRecord {
	keys := ni.Name.keys()
	rec := domain.RawEntityRecord{
		Class:      firstNonEmpty(ni.Instance.ClassName, ni.Name.ClassName, className),
		Scope:      PathRef(keys).Scope,
		Attributes: make(map[string]any, len(ni.Instance.Properties)+len(keys)),
	}

	for k, v := range keys {
		rec.Attributes[k] = v
	}
	for _, p := range ni.Instance.Properties {
		if p.Value == nil {
			continue
		}
		rec.Attributes[p.Name] = strings.TrimSpace(*p.Value)
	}
	for _, a := range ni.Instance.Arrays {
		if a.Values == nil {
			continue
		}
		rec.Attributes[a.Name] = a.Values.Values
	}
	for _, r := range ni.Instance.References {
		name := r.Value.name()
		if name == nil {
			continue
		}
		ref := PathRef(name.keys())
		if ref.IsZero() {
			continue
		}
		if rec.References == nil {
			rec.References = make(map[string]domain.Reference)
		}
		rec.References[r.Name] = ref
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
