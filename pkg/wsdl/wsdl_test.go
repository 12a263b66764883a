package wsdl_test

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/asyncsoap/pkg/wsdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDemo(t *testing.T) *wsdl.Definitions {
	doc, err := os.ReadFile(filepath.Join("testdata", "demo.wsdl"))
	require.NoError(t, err)
	defs, err := wsdl.Parse(doc)
	require.NoError(t, err)
	return defs
}

func TestParse(t *testing.T) {
	defs := loadDemo(t)

	assert.Equal(t, "SOAPDemo", defs.Name)
	assert.Equal(t, "http://tempuri.org", defs.TargetNamespace)
	assert.Len(t, defs.Messages, 4)
	assert.Len(t, defs.Bindings, 2)
	require.Len(t, defs.Services, 1)
	assert.Len(t, defs.Services[0].Ports, 2)
}

func TestService_SOAP11(t *testing.T) {
	svc, err := loadDemo(t).Service(wsdl.SOAP11)
	require.NoError(t, err)

	assert.Equal(t, wsdl.SOAP11, svc.Version)
	assert.Equal(t, "SOAPDemoSoap", svc.Port)
	assert.Equal(t, "https://www.crcind.com/csp/samples/SOAP.Demo.cls", svc.Endpoint)
	assert.Equal(t, wsdl.StyleDocument, svc.Style)
	assert.Equal(t, []string{"AddInteger", "LookupCity"}, svc.OperationNames())

	op := svc.Operations["AddInteger"]
	assert.Equal(t, "http://tempuri.org/SOAP.Demo.AddInteger", op.SOAPAction)
	assert.Equal(t, xml.Name{Space: "http://tempuri.org", Local: "AddInteger"}, op.Input)
	assert.Equal(t, xml.Name{Space: "http://tempuri.org", Local: "AddIntegerResponse"}, op.Output)
}

func TestService_SOAP12(t *testing.T) {
	svc, err := loadDemo(t).Service(wsdl.SOAP12)
	require.NoError(t, err)

	assert.Equal(t, wsdl.SOAP12, svc.Version)
	assert.Equal(t, "https://www.crcind.com/csp/samples/SOAP.Demo12.cls", svc.Endpoint)
	assert.Equal(t, "http://tempuri.org/SOAP.Demo.LookupCity", svc.Operations["LookupCity"].SOAPAction)
}

func TestService_FallsBackToAvailableVersion(t *testing.T) {
	doc := `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/"
  xmlns:soap12="http://schemas.xmlsoap.org/wsdl/soap12/"
  xmlns:tns="urn:echo" targetNamespace="urn:echo">
  <binding name="EchoBinding" type="tns:EchoPort">
    <soap12:binding style="rpc" transport="http://schemas.xmlsoap.org/soap/http"/>
    <operation name="Echo">
      <soap12:operation soapAction="urn:echo#Echo"/>
      <input><soap12:body use="literal" namespace="urn:echo:rpc"/></input>
    </operation>
  </binding>
  <service name="Echo">
    <port name="EchoPort" binding="tns:EchoBinding">
      <soap12:address location="http://localhost/echo"/>
    </port>
  </service>
</definitions>`

	defs, err := wsdl.Parse([]byte(doc))
	require.NoError(t, err)

	svc, err := defs.Service(wsdl.SOAP11)
	require.NoError(t, err)
	assert.Equal(t, wsdl.SOAP12, svc.Version)
	assert.Equal(t, wsdl.StyleRPC, svc.Style)

	op := svc.Operations["Echo"]
	assert.Equal(t, wsdl.StyleRPC, op.Style)
	assert.Equal(t, xml.Name{Space: "urn:echo:rpc", Local: "Echo"}, op.Input)
	assert.Equal(t, xml.Name{Space: "urn:echo:rpc", Local: "EchoResponse"}, op.Output)
}

func TestService_Errors(t *testing.T) {
	noService := `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/" targetNamespace="urn:x"/>`
	defs, err := wsdl.Parse([]byte(noService))
	require.NoError(t, err)
	_, err = defs.Service(wsdl.SOAP11)
	assert.ErrorIs(t, err, wsdl.ErrNoService)

	httpOnly := `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/" xmlns:tns="urn:x" targetNamespace="urn:x">
  <binding name="B" type="tns:P"/>
  <service name="S"><port name="P" binding="tns:B"/></service>
</definitions>`
	defs, err = wsdl.Parse([]byte(httpOnly))
	require.NoError(t, err)
	_, err = defs.Service(wsdl.SOAP11)
	assert.ErrorIs(t, err, wsdl.ErrNoSOAPPort)
}

func TestParse_RejectsNonWSDL(t *testing.T) {
	_, err := wsdl.Parse([]byte(`<html><body>not found</body></html>`))
	assert.Error(t, err)

	_, err = wsdl.Parse([]byte(`not xml at all`))
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := wsdl.ParseVersion("")
	require.NoError(t, err)
	assert.Equal(t, wsdl.SOAP11, v)

	v, err = wsdl.ParseVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, wsdl.SOAP12, v)

	_, err = wsdl.ParseVersion("2.0")
	assert.ErrorIs(t, err, wsdl.ErrUnsupportedVersion)
}
