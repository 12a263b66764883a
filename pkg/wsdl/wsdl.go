package wsdl

import (
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Namespaces understood by the reader.
const (
	NamespaceWSDL   = "http://schemas.xmlsoap.org/wsdl/"
	NamespaceSOAP11 = "http://schemas.xmlsoap.org/wsdl/soap/"
	NamespaceSOAP12 = "http://schemas.xmlsoap.org/wsdl/soap12/"
)

// Version identifies a SOAP protocol version.
type Version string

const (
	SOAP11 Version = "1.1"
	SOAP12 Version = "1.2"
)

// Binding styles.
const (
	StyleDocument = "document"
	StyleRPC      = "rpc"
)

var (
	// ErrNoService is returned when the document declares no service.
	ErrNoService = errors.New("wsdl: no service defined")
	// ErrNoSOAPPort is returned when no service port is bound to SOAP.
	ErrNoSOAPPort = errors.New("wsdl: no SOAP port found")
	// ErrUnsupportedVersion is returned for versions other than 1.1 and 1.2.
	ErrUnsupportedVersion = errors.New("wsdl: unsupported SOAP version")
)

// ParseVersion accepts "1.1", "1.2" and "" (1.1).
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "", string(SOAP11):
		return SOAP11, nil
	case string(SOAP12):
		return SOAP12, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
}

// Definitions is the raw WSDL 1.1 document.
type Definitions struct {
	XMLName         xml.Name    `xml:"http://schemas.xmlsoap.org/wsdl/ definitions"`
	Name            string      `xml:"name,attr"`
	TargetNamespace string      `xml:"targetNamespace,attr"`
	Attrs           []xml.Attr  `xml:",any,attr"`
	Messages        []Message   `xml:"message"`
	PortTypes       []PortType  `xml:"portType"`
	Bindings        []Binding   `xml:"binding"`
	Services        []ServiceEl `xml:"service"`
}

type Message struct {
	Name  string `xml:"name,attr"`
	Parts []Part `xml:"part"`
}

type Part struct {
	Name    string     `xml:"name,attr"`
	Element string     `xml:"element,attr"`
	Type    string     `xml:"type,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

type PortType struct {
	Name       string              `xml:"name,attr"`
	Operations []PortTypeOperation `xml:"operation"`
}

type PortTypeOperation struct {
	Name   string     `xml:"name,attr"`
	Input  MessageRef `xml:"input"`
	Output MessageRef `xml:"output"`
}

type MessageRef struct {
	Message string `xml:"message,attr"`
}

type Binding struct {
	Name       string             `xml:"name,attr"`
	Type       string             `xml:"type,attr"`
	SOAP11     *SOAPBinding       `xml:"http://schemas.xmlsoap.org/wsdl/soap/ binding"`
	SOAP12     *SOAPBinding       `xml:"http://schemas.xmlsoap.org/wsdl/soap12/ binding"`
	Operations []BindingOperation `xml:"operation"`
}

type SOAPBinding struct {
	Style     string `xml:"style,attr"`
	Transport string `xml:"transport,attr"`
}

type BindingOperation struct {
	Name   string         `xml:"name,attr"`
	SOAP11 *SOAPOperation `xml:"http://schemas.xmlsoap.org/wsdl/soap/ operation"`
	SOAP12 *SOAPOperation `xml:"http://schemas.xmlsoap.org/wsdl/soap12/ operation"`
	Input  BindingIO      `xml:"input"`
}

type SOAPOperation struct {
	SOAPAction string `xml:"soapAction,attr"`
	Style      string `xml:"style,attr"`
}

type BindingIO struct {
	Body11 *SOAPBody `xml:"http://schemas.xmlsoap.org/wsdl/soap/ body"`
	Body12 *SOAPBody `xml:"http://schemas.xmlsoap.org/wsdl/soap12/ body"`
}

type SOAPBody struct {
	Use       string `xml:"use,attr"`
	Namespace string `xml:"namespace,attr"`
}

// ServiceEl is a <service> element.
type ServiceEl struct {
	Name  string `xml:"name,attr"`
	Ports []Port `xml:"port"`
}

type Port struct {
	Name      string   `xml:"name,attr"`
	Binding   string   `xml:"binding,attr"`
	Address11 *Address `xml:"http://schemas.xmlsoap.org/wsdl/soap/ address"`
	Address12 *Address `xml:"http://schemas.xmlsoap.org/wsdl/soap12/ address"`
}

type Address struct {
	Location string `xml:"location,attr"`
}

// Parse decodes a WSDL 1.1 document.
func Parse(doc []byte) (*Definitions, error) {
	var defs Definitions
	if err := xml.Unmarshal(doc, &defs); err != nil {
		return nil, fmt.Errorf("wsdl: failed to parse document: %w", err)
	}
	return &defs, nil
}

// Operation is a resolved binding operation.
type Operation struct {
	Name       string
	SOAPAction string
	Style      string
	// Input is the wrapper element of the request body.
	Input xml.Name
	// Output is the expected wrapper element of the response body.
	Output xml.Name
}

// Service is the callable view of one SOAP port.
type Service struct {
	Name       string
	Port       string
	Endpoint   string
	Namespace  string
	Version    Version
	Style      string
	Operations map[string]Operation
}

// OperationNames returns the operation names, sorted.
func (s Service) OperationNames() []string {
	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service resolves the first SOAP port of the requested version. When no port
// of that version exists, any SOAP port is used.
func (d *Definitions) Service(version Version) (Service, error) {
	if len(d.Services) == 0 {
		return Service{}, ErrNoService
	}
	if version == "" {
		version = SOAP11
	}

	var fallback *Service
	for _, svc := range d.Services {
		for _, port := range svc.Ports {
			b := d.binding(port.Binding)
			if b == nil {
				continue
			}
			resolved, ok := d.resolve(svc, port, b)
			if !ok {
				continue
			}
			if resolved.Version == version {
				return resolved, nil
			}
			if fallback == nil {
				fallback = &resolved
			}
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Service{}, ErrNoSOAPPort
}

func (d *Definitions) resolve(svc ServiceEl, port Port, b *Binding) (Service, bool) {
	out := Service{
		Name:       svc.Name,
		Port:       port.Name,
		Namespace:  d.TargetNamespace,
		Operations: make(map[string]Operation),
	}

	var soapBinding *SOAPBinding
	switch {
	case b.SOAP12 != nil:
		out.Version = SOAP12
		soapBinding = b.SOAP12
	case b.SOAP11 != nil:
		out.Version = SOAP11
		soapBinding = b.SOAP11
	default:
		return Service{}, false
	}
	switch {
	case port.Address12 != nil:
		out.Endpoint = port.Address12.Location
	case port.Address11 != nil:
		out.Endpoint = port.Address11.Location
	}
	out.Style = soapBinding.Style
	if out.Style == "" {
		out.Style = StyleDocument
	}

	pt := d.portType(b.Type)
	for _, bop := range b.Operations {
		op := Operation{Name: bop.Name, Style: out.Style}
		if sop := firstOp(bop.SOAP12, bop.SOAP11); sop != nil {
			op.SOAPAction = sop.SOAPAction
			if sop.Style != "" {
				op.Style = sop.Style
			}
		}

		ns := out.Namespace
		if body := firstBody(bop.Input.Body12, bop.Input.Body11); body != nil && body.Namespace != "" {
			ns = body.Namespace
		}
		op.Input = xml.Name{Space: ns, Local: bop.Name}
		op.Output = xml.Name{Space: ns, Local: bop.Name + "Response"}

		if op.Style == StyleDocument && pt != nil {
			if pto := pt.operation(bop.Name); pto != nil {
				if el, ok := d.wrapperElement(pto.Input.Message); ok {
					op.Input = el
				}
				if el, ok := d.wrapperElement(pto.Output.Message); ok {
					op.Output = el
				}
			}
		}
		out.Operations[op.Name] = op
	}
	return out, true
}

// wrapperElement returns the element of a single-part document message.
func (d *Definitions) wrapperElement(messageRef string) (xml.Name, bool) {
	name := localName(messageRef)
	for _, m := range d.Messages {
		if m.Name != name || len(m.Parts) != 1 || m.Parts[0].Element == "" {
			continue
		}
		return d.qname(m.Parts[0].Element, m.Parts[0].Attrs), true
	}
	return xml.Name{}, false
}

// qname resolves a prefixed name against the namespaces declared on the part
// and on the document root.
func (d *Definitions) qname(s string, scoped []xml.Attr) xml.Name {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return xml.Name{Space: d.lookupNamespace("", scoped), Local: s}
	}
	return xml.Name{Space: d.lookupNamespace(prefix, scoped), Local: local}
}

func (d *Definitions) lookupNamespace(prefix string, scoped []xml.Attr) string {
	for _, attrs := range [][]xml.Attr{scoped, d.Attrs} {
		for _, a := range attrs {
			if prefix == "" && a.Name.Space == "" && a.Name.Local == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Name.Space == "xmlns" && a.Name.Local == prefix {
				return a.Value
			}
		}
	}
	return d.TargetNamespace
}

func (d *Definitions) binding(ref string) *Binding {
	name := localName(ref)
	for i := range d.Bindings {
		if d.Bindings[i].Name == name {
			return &d.Bindings[i]
		}
	}
	return nil
}

func (d *Definitions) portType(ref string) *PortType {
	name := localName(ref)
	for i := range d.PortTypes {
		if d.PortTypes[i].Name == name {
			return &d.PortTypes[i]
		}
	}
	return nil
}

func (p *PortType) operation(name string) *PortTypeOperation {
	for i := range p.Operations {
		if p.Operations[i].Name == name {
			return &p.Operations[i]
		}
	}
	return nil
}

func firstOp(ops ...*SOAPOperation) *SOAPOperation {
	for _, op := range ops {
		if op != nil {
			return op
		}
	}
	return nil
}

func firstBody(bodies ...*SOAPBody) *SOAPBody {
	for _, b := range bodies {
		if b != nil {
			return b
		}
	}
	return nil
}

func localName(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
