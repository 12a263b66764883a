/*
Package asyncsoap is an asynchronous SOAP client: every remote call returns a
Future immediately while the request is built, sent and interpreted on its own
goroutine.

# Concept

A call flows through three collaborators. A BindingSupplier lazily yields the
Binding (usually resolved from a WSDL), the Binding renders the invocation into
an HTTP request and later decodes the response, and a Transport performs the
exchange. The Client orchestrates them and guarantees that every request and
response body is released exactly once, whatever the outcome.

# Call surfaces

  - CallAsync returns a Future and never blocks.
  - Call blocks until the Future settles.
  - Invoke dispatches by operation name with default options.

All three produce the same Result or error for the same collaborator behavior.

# Usage

	factory := asyncsoap.NewFactory()
	client, err := factory.Create("https://example.com/service?wsdl", nil)
	if err != nil {
		log.Fatal(err)
	}

	res, err := client.Call(ctx, "AddInteger", []any{map[string]any{"Arg1": 2, "Arg2": 3}})
	if err != nil {
		var fault *domain.Fault
		if errors.As(err, &fault) {
			log.Printf("server fault %s: %s", fault.Code, fault.String)
		}
		return
	}
	fmt.Println(res.Value)

Errors are typed: *domain.Fault for application faults, *domain.TransportError
when no response arrived, *domain.BuildError when the request could not be
rendered and *domain.DecodeError when the response could not be understood.
*/
package asyncsoap
