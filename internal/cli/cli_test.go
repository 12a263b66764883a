package cli_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/asyncsoap"
	"github.com/aretw0/asyncsoap/internal/cli"
	"github.com/aretw0/asyncsoap/internal/config"
	"github.com/aretw0/asyncsoap/internal/logging"
	"github.com/aretw0/asyncsoap/pkg/adapters/memory"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addIntegerResponse = `<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Body>
<AddIntegerResponse xmlns="http://tempuri.org"><AddIntegerResult>5</AddIntegerResult></AddIntegerResponse>
</SOAP-ENV:Body></SOAP-ENV:Envelope>`

const serverFault = `<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Body>
<SOAP-ENV:Fault><faultcode>SOAP-ENV:Server</faultcode><faultstring>overflow</faultstring></SOAP-ENV:Fault>
</SOAP-ENV:Body></SOAP-ENV:Envelope>`

func demoConfig(t *testing.T) *config.Config {
	t.Helper()
	doc, err := os.ReadFile("../../pkg/wsdl/testdata/demo.wsdl")
	require.NoError(t, err)
	cfg := config.Default()
	cfg.WSDL = "data://text/plain;base64," + base64.StdEncoding.EncodeToString(doc)
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, tr *memory.Transport, opts ...cli.AppOption) *cli.App {
	t.Helper()
	opts = append(opts, cli.WithTransport(tr))
	app, err := cli.NewApp(cfg, logging.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRunCall_JSON(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, addIntegerResponse))
	cfg := demoConfig(t)
	cfg.Headers = map[string]string{"X-Tenant": "acme"}
	app := newApp(t, cfg, tr)

	var out bytes.Buffer
	err := cli.RunCall(context.Background(), app, cli.CallOptions{
		Operation: "AddInteger",
		Args:      `{"Arg1": 2, "Arg2": 3}`,
		Headers:   []string{"urn:auth|Token=t-1"},
		Format:    cli.FormatJSON,
	}, &out)
	require.NoError(t, err)

	var res domain.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, map[string]any{"AddIntegerResult": "5"}, res.Value)

	requests := tr.Requests()
	require.Len(t, requests, 1)
	body := string(requests[0].Body)
	assert.Contains(t, body, "<Arg1>2</Arg1>")
	assert.Contains(t, body, "t-1")
	assert.Equal(t, map[string]any{"headers": map[string]any{"X-Tenant": "acme"}}, requests[0].Options)
}

func TestRunCall_Fault(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusInternalServerError, serverFault))
	app := newApp(t, demoConfig(t), tr)

	var out bytes.Buffer
	err := cli.RunCall(context.Background(), app, cli.CallOptions{
		Operation: "AddInteger",
		Args:      `{"Arg1": 1, "Arg2": 2}`,
		Format:    cli.FormatJSON,
	}, &out)
	assert.ErrorIs(t, err, cli.ErrCallFailed)
	assert.JSONEq(t, `{"fault": {"code": "SOAP-ENV:Server", "string": "overflow"}}`, out.String())

	out.Reset()
	tr.Enqueue(memory.Reply(http.StatusInternalServerError, serverFault))
	err = cli.RunCall(context.Background(), app, cli.CallOptions{Operation: "AddInteger", Format: cli.FormatTable}, &out)
	assert.ErrorIs(t, err, cli.ErrCallFailed)
	assert.Contains(t, out.String(), "Fault SOAP-ENV:Server")
	assert.Contains(t, out.String(), "overflow")
}

func TestRunCall_Table(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, addIntegerResponse))
	app := newApp(t, demoConfig(t), tr)

	var out bytes.Buffer
	err := cli.RunCall(context.Background(), app, cli.CallOptions{
		Operation: "AddInteger",
		Args:      `{"Arg1": 2, "Arg2": 3}`,
		Format:    cli.FormatTable,
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "## AddInteger")
	assert.Contains(t, out.String(), "| AddIntegerResult | 5 |")
}

func TestRunCall_InvalidInput(t *testing.T) {
	app := newApp(t, demoConfig(t), memory.NewTransport())

	err := cli.RunCall(context.Background(), app, cli.CallOptions{Operation: "AddInteger", Args: "{"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--args")

	err = cli.RunCall(context.Background(), app, cli.CallOptions{Operation: "AddInteger", Options: "[]"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--options")

	err = cli.RunCall(context.Background(), app, cli.CallOptions{Operation: "AddInteger", Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestRunOperations(t *testing.T) {
	app := newApp(t, demoConfig(t), memory.NewTransport())

	var out bytes.Buffer
	require.NoError(t, cli.RunOperations(context.Background(), app, cli.FormatJSON, &out))
	assert.JSONEq(t, `["AddInteger", "LookupCity"]`, out.String())

	out.Reset()
	require.NoError(t, cli.RunOperations(context.Background(), app, cli.FormatTable, &out))
	assert.Contains(t, out.String(), "- LookupCity")
}

func TestNewApp_NonWSDLModeValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Location = "http://localhost/echo"

	_, err := cli.NewApp(cfg, logging.NewNop(), cli.WithTransport(memory.NewTransport()))
	assert.ErrorIs(t, err, asyncsoap.ErrNonWSDLMode)
}

func TestNewApp_RedisDescriptionCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := demoConfig(t)
	cfg.Cache.RedisAddr = mr.Addr()
	cfg.Cache.TTL = config.Duration(time.Minute)

	app := newApp(t, cfg, memory.NewTransport())
	ops, err := app.Operations(context.Background())
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	var cached []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "asyncsoap:wsdl:") && !strings.Contains(k, "lock:") {
			cached = append(cached, k)
		}
	}
	require.Len(t, cached, 1, "the description is stored once")
	assert.Equal(t, time.Minute, mr.TTL(cached[0]))
}

func TestNewApp_Metrics(t *testing.T) {
	tr := memory.NewTransport(memory.Reply(http.StatusOK, addIntegerResponse))
	app := newApp(t, demoConfig(t), tr, cli.WithMetrics())
	require.NotNil(t, app.Registry)

	_, err := app.Dispatch(context.Background(), "AddInteger", []any{map[string]any{"Arg1": 2, "Arg2": 3}}, nil)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(app.Registry, "asyncsoap_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		raw  string
		want []any
	}{
		{"", nil},
		{"null", nil},
		{`{"zip": "90210"}`, []any{map[string]any{"zip": "90210"}}},
		{`[1, "two"]`, []any{json.Number("1"), "two"}},
		{`"solo"`, []any{"solo"}},
	}
	for _, tt := range tests {
		got, err := cli.ParseArguments(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseHeaders(t *testing.T) {
	headers, err := cli.ParseHeaders([]string{"urn:auth|Token=abc", "Locale=en=US"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Header{
		{Namespace: "urn:auth", Name: "Token", Value: "abc"},
		{Name: "Locale", Value: "en=US"},
	}, headers)

	_, err = cli.ParseHeaders([]string{"novalue"})
	assert.Error(t, err)
	_, err = cli.ParseHeaders([]string{"urn:x|=v"})
	assert.Error(t, err)
}

func TestRunDescribe(t *testing.T) {
	cfg := demoConfig(t)
	cfg.SOAPVersion = "1.2"

	var out bytes.Buffer
	require.NoError(t, cli.RunDescribe(context.Background(), cfg, logging.NewNop(), cli.FormatJSON, &out))

	var summary cli.ServiceSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "1.2", summary.Version)
	assert.Equal(t, "https://www.crcind.com/csp/samples/SOAP.Demo12.cls", summary.Endpoint)
	require.Len(t, summary.Operations, 2)
	assert.Equal(t, "AddInteger", summary.Operations[0].Name)
	assert.Equal(t, "{http://tempuri.org}AddInteger", summary.Operations[0].Input)

	cfg.WSDL = "data:text/plain,not-a-wsdl"
	assert.Error(t, cli.RunDescribe(context.Background(), cfg, logging.NewNop(), cli.FormatJSON, &bytes.Buffer{}))
}
