package cim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiscope/internal/domain"
)

const volumesResponse = `<?xml version="1.0" encoding="utf-8" ?>
<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="EnumerateInstances">
    <IRETURNVALUE>
     <VALUE.NAMEDINSTANCE>
      <INSTANCENAME CLASSNAME="IBMTSSVC_StorageVolume">
       <KEYBINDING NAME="SystemName"><KEYVALUE VALUETYPE="string">sysA</KEYVALUE></KEYBINDING>
       <KEYBINDING NAME="DeviceID"><KEYVALUE VALUETYPE="string">dev7</KEYVALUE></KEYBINDING>
      </INSTANCENAME>
      <INSTANCE CLASSNAME="IBMTSSVC_StorageVolume">
       <PROPERTY NAME="ElementName" TYPE="string"><VALUE>vol7</VALUE></PROPERTY>
       <PROPERTY NAME="BlockSize" TYPE="uint64"><VALUE>512</VALUE></PROPERTY>
       <PROPERTY NAME="Caption" TYPE="string"></PROPERTY>
       <PROPERTY.ARRAY NAME="OperationalStatus" TYPE="uint16">
        <VALUE.ARRAY><VALUE>2</VALUE></VALUE.ARRAY>
       </PROPERTY.ARRAY>
      </INSTANCE>
     </VALUE.NAMEDINSTANCE>
    </IRETURNVALUE>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`

const allocationResponse = `<?xml version="1.0" encoding="utf-8" ?>
<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="EnumerateInstances">
    <IRETURNVALUE>
     <VALUE.NAMEDINSTANCE>
      <INSTANCENAME CLASSNAME="CIM_AllocatedFromStoragePool"/>
      <INSTANCE CLASSNAME="CIM_AllocatedFromStoragePool">
       <PROPERTY.REFERENCE NAME="Antecedent" REFERENCECLASS="CIM_StoragePool">
        <VALUE.REFERENCE>
         <INSTANCEPATH>
          <NAMESPACEPATH><HOST>array</HOST><LOCALNAMESPACEPATH><NAMESPACE NAME="root"/><NAMESPACE NAME="cimv2"/></LOCALNAMESPACEPATH></NAMESPACEPATH>
          <INSTANCENAME CLASSNAME="CIM_StoragePool">
           <KEYBINDING NAME="InstanceID"><KEYVALUE VALUETYPE="string">sysA+pool0</KEYVALUE></KEYBINDING>
          </INSTANCENAME>
         </INSTANCEPATH>
        </VALUE.REFERENCE>
       </PROPERTY.REFERENCE>
       <PROPERTY.REFERENCE NAME="Dependent" REFERENCECLASS="CIM_StorageVolume">
        <VALUE.REFERENCE>
         <LOCALINSTANCEPATH>
          <LOCALNAMESPACEPATH><NAMESPACE NAME="root"/></LOCALNAMESPACEPATH>
          <INSTANCENAME CLASSNAME="CIM_StorageVolume">
           <KEYBINDING NAME="SystemName"><KEYVALUE>sysA</KEYVALUE></KEYBINDING>
           <KEYBINDING NAME="DeviceID"><KEYVALUE>dev7</KEYVALUE></KEYBINDING>
          </INSTANCENAME>
         </LOCALINSTANCEPATH>
        </VALUE.REFERENCE>
       </PROPERTY.REFERENCE>
      </INSTANCE>
     </VALUE.NAMEDINSTANCE>
    </IRETURNVALUE>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`

const invalidClassResponse = `<?xml version="1.0" encoding="utf-8" ?>
<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="EnumerateInstances">
    <ERROR CODE="5" DESCRIPTION="CIM_ERR_INVALID_CLASS"/>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`

const accessDeniedResponse = `<?xml version="1.0" encoding="utf-8" ?>
<CIM CIMVERSION="2.0" DTDVERSION="2.0">
 <MESSAGE ID="1" PROTOCOLVERSION="1.0">
  <SIMPLERSP>
   <IMETHODRESPONSE NAME="EnumerateInstances">
    <ERROR CODE="2" DESCRIPTION="CIM_ERR_ACCESS_DENIED"/>
   </IMETHODRESPONSE>
  </SIMPLERSP>
 </MESSAGE>
</CIM>`

// newCIMServer answers EnumerateInstances with a canned body per class
func newCIMServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cimom", r.URL.Path)
		assert.Equal(t, "EnumerateInstances", r.Header.Get("CIMMethod"))
		assert.Equal(t, "root%2Fcimv2", r.Header.Get("CIMObject"))

		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		body := string(raw)
		assert.Contains(t, body, `<NAMESPACE NAME="root"/><NAMESPACE NAME="cimv2"/>`)

		for class, resp := range bodies {
			if strings.Contains(body, `<CLASSNAME NAME="`+class+`"/>`) {
				w.Header().Set("Content-Type", "application/xml")
				_, _ = io.WriteString(w, resp)
				return
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, password string) *WBEMClient {
	t.Helper()
	secret := &domain.Secret{
		ID:   "wbem.test",
		Type: domain.SecretTypeWBEMBasic,
		Data: map[string]string{"username": "admin", "password": password},
	}
	c, err := NewWBEMClient(url, "root/cimv2", WithCredentials(secret))
	require.NoError(t, err)
	return c
}

func TestWBEMClientEnumerateInstances(t *testing.T) {
	srv := newCIMServer(t, map[string]string{
		"CIM_StorageVolume":            volumesResponse,
		"CIM_AllocatedFromStoragePool": allocationResponse,
		"CIM_StorageProcessorSystem":   invalidClassResponse,
		"CIM_FCPort":                   accessDeniedResponse,
	})
	c := newTestClient(t, srv.URL, "secret")
	ctx := context.Background()

	t.Run("entity instances", func(t *testing.T) {
		records, err := c.Query(ctx, "CIM_StorageVolume")
		require.NoError(t, err)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "IBMTSSVC_StorageVolume", rec.Class)
		assert.Equal(t, "sysA", rec.Scope)
		assert.Equal(t, "dev7", rec.String("DeviceID"))
		assert.Equal(t, "vol7", rec.String("ElementName"))
		assert.False(t, rec.Has("Caption"))
		assert.Equal(t, []string{"2"}, rec.Attributes["OperationalStatus"])

		n, ok, err := rec.Uint64("BlockSize")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(512), n)
	})

	t.Run("association references", func(t *testing.T) {
		records, err := c.Query(ctx, "CIM_AllocatedFromStoragePool")
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.Equal(t, domain.Reference{Scope: "sysA+", LocalID: "pool0"}, records[0].Ref("Antecedent"))
		assert.Equal(t, domain.Reference{Scope: "sysA", LocalID: "dev7"}, records[0].Ref("Dependent"))
	})

	t.Run("invalid class is unsupported", func(t *testing.T) {
		_, err := c.Query(ctx, "CIM_StorageProcessorSystem")
		assert.ErrorIs(t, err, ErrClassNotSupported)
	})

	t.Run("other CIM errors are failures", func(t *testing.T) {
		_, err := c.Query(ctx, "CIM_FCPort")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrClassNotSupported)

		var cimErr *CIMError
		require.ErrorAs(t, err, &cimErr)
		assert.Equal(t, 2, cimErr.Code)
	})

	t.Run("http errors are failures", func(t *testing.T) {
		_, err := c.Query(ctx, "CIM_Unknown")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 500")
	})
}

func TestWBEMClientUnauthorized(t *testing.T) {
	srv := newCIMServer(t, map[string]string{"CIM_StorageVolume": volumesResponse})
	c := newTestClient(t, srv.URL, "wrong")

	_, err := c.Query(context.Background(), "CIM_StorageVolume")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestWBEMClientInNamespace(t *testing.T) {
	c, err := NewWBEMClient("https://array:5989", "root/ibm")
	require.NoError(t, err)

	interop := c.InNamespace("/root/interop/")
	assert.Equal(t, "root/interop", interop.Namespace())
	assert.Equal(t, "root/ibm", c.Namespace())
}

func TestNewWBEMClientRejectsBadEndpoint(t *testing.T) {
	_, err := NewWBEMClient("ftp://array", "")
	assert.Error(t, err)
}

func TestPathRef(t *testing.T) {
	tests := []struct {
		name string
		keys map[string]string
		want domain.Reference
	}{
		{"component", map[string]string{"SystemName": "sysA", "DeviceID": "p1", "CreationClassName": "CIM_FCPort"}, domain.Reference{Scope: "sysA", LocalID: "p1"}},
		{"access point", map[string]string{"SystemName": "sysA", "Name": "2100001b32a1b2c3"}, domain.Reference{Scope: "sysA", LocalID: "2100001b32a1b2c3"}},
		{"filesystem", map[string]string{"CSName": "nas1", "Name": "/fs1"}, domain.Reference{Scope: "nas1", LocalID: "/fs1"}},
		{"instance id", map[string]string{"InstanceID": "sysA+pool0"}, domain.Reference{Scope: "sysA+", LocalID: "pool0"}},
		{"system", map[string]string{"Name": "sysA", "CreationClassName": "CIM_StorageSystem"}, domain.Reference{Scope: "sysA"}},
		{"no keys", map[string]string{}, domain.Reference{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PathRef(tt.keys))
		})
	}
}
