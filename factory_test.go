package asyncsoap_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aretw0/asyncsoap"
	"github.com/aretw0/asyncsoap/pkg/adapters/memory"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rpcResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body><ns1:EchoResponse xmlns:ns1="urn:echo"><return>hi</return></ns1:EchoResponse></soap:Body>
</soap:Envelope>`

func TestFactory_NonWSDLModeRequiresLocationAndURI(t *testing.T) {
	factory := asyncsoap.NewFactory(asyncsoap.WithTransport(memory.NewTransport()))

	tests := []struct {
		name    string
		options domain.Options
	}{
		{"nil options", nil},
		{"missing uri", domain.Options{domain.OptionLocation: "http://svc"}},
		{"missing location", domain.Options{domain.OptionURI: "urn:echo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Create("", tt.options)
			assert.ErrorIs(t, err, asyncsoap.ErrNonWSDLMode)
		})
	}

	_, err := factory.Create("", domain.Options{domain.OptionLocation: "", domain.OptionURI: ""})
	assert.NoError(t, err, "present but empty keys are accepted")
}

func TestFactory_NonWSDLModeCall(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, rpcResponse))
	client, err := asyncsoap.NewFactory(asyncsoap.WithTransport(tr)).
		Create("", domain.Options{domain.OptionLocation: "http://svc/echo", domain.OptionURI: "urn:echo"})
	require.NoError(t, err)

	res, err := client.Invoke(context.Background(), "Echo", "hi").Wait()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"return": "hi"}, res.Value)

	ops, err := client.Operations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ops, "any operation name is accepted")

	requests := tr.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "http://svc/echo", requests[0].URL)
	assert.Equal(t, `"urn:echo#Echo"`, requests[0].Header.Get("SOAPAction"))
	assert.Contains(t, string(requests[0].Body), `<ns1:Echo xmlns:ns1="urn:echo">`)
	assert.Contains(t, string(requests[0].Body), `<arg0>hi</arg0>`)
}

func TestFactory_SOAPVersion(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, addIntegerResponse))
	client, err := asyncsoap.NewFactory(asyncsoap.WithTransport(tr)).
		Create(demoWSDL(t), domain.Options{asyncsoap.OptionSOAPVersion: "1.2"})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "AddInteger", addArgs())
	require.NoError(t, err)

	requests := tr.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "https://www.crcind.com/csp/samples/SOAP.Demo12.cls", requests[0].URL)
	assert.Contains(t, requests[0].Header.Get("Content-Type"), "application/soap+xml")
}

func TestFactory_URIOverride(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, addIntegerResponse))
	client, err := asyncsoap.NewFactory(asyncsoap.WithTransport(tr)).
		Create(demoWSDL(t), domain.Options{domain.OptionURI: "urn:staging"})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "AddInteger", addArgs())
	require.NoError(t, err)
	assert.Contains(t, string(tr.Requests()[0].Body), `<AddInteger xmlns="urn:staging">`)
}

func TestFactory_InvalidOptions(t *testing.T) {
	factory := asyncsoap.NewFactory()

	_, err := factory.Create("", domain.Options{
		domain.OptionLocation:      "http://svc",
		domain.OptionURI:           "urn:x",
		asyncsoap.OptionSOAPVersion: "2.0",
	})
	assert.Error(t, err)

	_, err = factory.Create("", domain.Options{
		domain.OptionLocation: "http://svc",
		domain.OptionURI:      "urn:x",
		asyncsoap.OptionStyle: "literal",
	})
	assert.ErrorIs(t, err, asyncsoap.ErrInvalidStyle)
}

func TestFactory_DescriptionIsLoadedOnce(t *testing.T) {
	loader := memory.NewLoader(map[string]string{"demo.wsdl": mustRead(t, "pkg/wsdl/testdata/demo.wsdl")})
	tr := memory.NewTransport(
		memory.Reply(http.StatusOK, addIntegerResponse),
		memory.Reply(http.StatusOK, addIntegerResponse),
	)
	client, err := asyncsoap.NewFactory(
		asyncsoap.WithTransport(tr),
		asyncsoap.WithDescriptionLoader(loader),
	).Create("demo.wsdl", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, loader.Loads("demo.wsdl"), "nothing is fetched before the first call")

	a := client.CallAsync(context.Background(), "AddInteger", addArgs())
	b := client.CallAsync(context.Background(), "AddInteger", addArgs())
	_, errA := a.Wait()
	_, errB := b.Wait()
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, 1, loader.Loads("demo.wsdl"))
}
