package binding

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/wsdl"
)

// Envelope namespaces.
const (
	NamespaceEnvelope11 = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceEnvelope12 = "http://www.w3.org/2003/05/soap-envelope"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// envelopeWriter streams tokens and keeps the first error.
type envelopeWriter struct {
	enc *xml.Encoder
	err error
}

func (w *envelopeWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *envelopeWriter) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *envelopeWriter) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *envelopeWriter) text(s string) {
	if s != "" {
		w.token(xml.CharData(s))
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func encodeEnvelope(version wsdl.Version, op wsdl.Operation, headers []domain.Header, args []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &envelopeWriter{enc: xml.NewEncoder(&buf)}

	envNS := NamespaceEnvelope11
	mustUnderstand := "1"
	if version == wsdl.SOAP12 {
		envNS = NamespaceEnvelope12
		mustUnderstand = "true"
	}

	w.start("soap:Envelope", attr("xmlns:soap", envNS))
	if len(headers) > 0 {
		w.start("soap:Header")
		for i, h := range headers {
			if h.Name == "" {
				return nil, fmt.Errorf("%w: header %d has no name", domain.ErrInvalidArguments, i)
			}
			name := h.Name
			var attrs []xml.Attr
			if h.Namespace != "" {
				prefix := "h" + strconv.Itoa(i)
				name = prefix + ":" + h.Name
				attrs = append(attrs, attr("xmlns:"+prefix, h.Namespace))
			}
			if h.MustUnderstand {
				attrs = append(attrs, attr("soap:mustUnderstand", mustUnderstand))
			}
			if err := w.value(name, attrs, h.Value); err != nil {
				return nil, err
			}
		}
		w.end("soap:Header")
	}

	w.start("soap:Body")
	wrapper := op.Input.Local
	var attrs []xml.Attr
	switch {
	case op.Input.Space == "":
	case op.Style == wsdl.StyleRPC:
		// rpc parts are unqualified, only the wrapper carries the namespace.
		wrapper = "ns1:" + op.Input.Local
		attrs = append(attrs, attr("xmlns:ns1", op.Input.Space))
	default:
		attrs = append(attrs, attr("xmlns", op.Input.Space))
	}
	w.start(wrapper, attrs...)
	if err := w.arguments(args); err != nil {
		return nil, err
	}
	w.end(wrapper)
	w.end("soap:Body")
	w.end("soap:Envelope")

	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

// arguments renders the call arguments inside the wrapper. A lone map or
// struct supplies the wrapper's children; anything else becomes <argN>.
func (w *envelopeWriter) arguments(args []any) error {
	if len(args) == 1 {
		rv := indirect(reflect.ValueOf(args[0]))
		if rv.IsValid() && (rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct) && !isText(rv) {
			return w.children(rv)
		}
	}
	for i, arg := range args {
		if err := w.value("arg"+strconv.Itoa(i), nil, arg); err != nil {
			return err
		}
	}
	return nil
}

func (w *envelopeWriter) value(name string, attrs []xml.Attr, v any) error {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		w.start(name, attrs...)
		w.end(name)
		return w.err
	}

	if s, ok, err := textOf(rv); ok || err != nil {
		if err != nil {
			return fmt.Errorf("%w: <%s>: %v", domain.ErrInvalidArguments, name, err)
		}
		w.start(name, attrs...)
		w.text(s)
		w.end(name)
		return w.err
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		w.start(name, attrs...)
		if err := w.children(rv); err != nil {
			return err
		}
		w.end(name)
		return w.err
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := w.value(name, attrs, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return w.err
	default:
		return fmt.Errorf("%w: cannot render %s as <%s>", domain.ErrInvalidArguments, rv.Kind(), name)
	}
}

func (w *envelopeWriter) children(rv reflect.Value) error {
	fields, err := fieldsOf(rv)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := w.value(f.name, nil, f.value); err != nil {
			return err
		}
	}
	return nil
}

type field struct {
	name  string
	value any
}

// fieldsOf lists the children of a map (sorted by key) or a struct (in
// declaration order, named by the `soap` tag).
func fieldsOf(rv reflect.Value) ([]field, error) {
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %s", domain.ErrInvalidArguments, rv.Type().Key())
		}
		fields := make([]field, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			name := iter.Key().String()
			if name == "" {
				return nil, fmt.Errorf("%w: empty element name", domain.ErrInvalidArguments)
			}
			fields = append(fields, field{name: name, value: iter.Value().Interface()})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
		return fields, nil
	case reflect.Struct:
		var fields []field
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			name, opts, _ := strings.Cut(sf.Tag.Get("soap"), ",")
			if name == "-" {
				continue
			}
			fv := rv.Field(i)
			if strings.Contains(opts, "omitempty") && fv.IsZero() {
				continue
			}
			if sf.Anonymous && name == "" {
				if inner := indirect(fv); inner.Kind() == reflect.Struct {
					nested, err := fieldsOf(inner)
					if err != nil {
						return nil, err
					}
					fields = append(fields, nested...)
					continue
				}
			}
			if name == "" {
				name = sf.Name
			}
			fields = append(fields, field{name: name, value: fv.Interface()})
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("%w: %s has no fields", domain.ErrInvalidArguments, rv.Kind())
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		if rv.Kind() == reflect.Pointer && rv.Type().Implements(textMarshalerType) {
			return rv
		}
		rv = rv.Elem()
	}
	return rv
}

func isText(rv reflect.Value) bool {
	return rv.Type().Implements(textMarshalerType) ||
		(rv.CanAddr() && rv.Addr().Type().Implements(textMarshalerType))
}

// textOf renders scalars. ok is false for composite values.
func textOf(rv reflect.Value) (s string, ok bool, err error) {
	if rv.Type().Implements(textMarshalerType) {
		b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), true, err
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true, nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), true, nil
		}
	}
	return "", false, nil
}
